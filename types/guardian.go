package types

import (
	"fmt"
	"strings"
)

// ArtifactField identifies one of the non-secret guardian artifacts that can
// be displayed and exported.
type ArtifactField int

const (
	PublicKey ArtifactField = iota
	DecryptionKey
	PartialDecryptedTally
	TallyShare
	KeyBackup
)

// ArtifactFields lists every artifact field in display order.
var ArtifactFields = []ArtifactField{
	PublicKey,
	DecryptionKey,
	PartialDecryptedTally,
	TallyShare,
	KeyBackup,
}

var artifactKeys = map[ArtifactField]string{
	PublicKey:             "guardianPublicKey",
	DecryptionKey:         "guardianDecryptionKey",
	PartialDecryptedTally: "partialDecryptedTally",
	TallyShare:            "tallyShare",
	KeyBackup:             "keyBackup",
}

var artifactLabels = map[ArtifactField]string{
	PublicKey:             "Guardian Public Key",
	DecryptionKey:         "Guardian Decryption Key",
	PartialDecryptedTally: "Partial Decrypted Tally",
	TallyShare:            "Tally Share",
	KeyBackup:             "Key Backup",
}

// Key returns the JSON key of the field in a guardian record.
func (f ArtifactField) Key() string {
	return artifactKeys[f]
}

// Label returns the human readable name of the field.
func (f ArtifactField) Label() string {
	return artifactLabels[f]
}

func (f ArtifactField) String() string {
	if k, ok := artifactKeys[f]; ok {
		return k
	}
	return fmt.Sprintf("ArtifactField(%d)", int(f))
}

// ParseArtifactField accepts either the JSON key or the label of a field,
// case insensitive. Spaces, dashes and underscores are ignored.
func ParseArtifactField(s string) (ArtifactField, error) {
	norm := normalizeFieldName(s)
	for _, f := range ArtifactFields {
		if norm == normalizeFieldName(f.Key()) || norm == normalizeFieldName(f.Label()) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown artifact field %q", s)
}

func normalizeFieldName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(s))
}

// Guardian is the record of one election guardian as returned by the
// guardian service. Artifact values are opaque, a nil pointer means the
// service did not provide the value.
type Guardian struct {
	ID             GuardianID `json:"id"`
	SequenceOrder  int        `json:"sequenceOrder"`
	UserName       string     `json:"userName"`
	UserEmail      string     `json:"userEmail"`
	DecryptedOrNot bool       `json:"decryptedOrNot"`

	GuardianPublicKey     *string `json:"guardianPublicKey"`
	GuardianDecryptionKey *string `json:"guardianDecryptionKey"`
	PartialDecryptedTally *string `json:"partialDecryptedTally"`
	TallyShare            *string `json:"tallyShare"`
	KeyBackup             *string `json:"keyBackup"`
}

// Artifact returns the stored value of the given field.
func (g *Guardian) Artifact(f ArtifactField) *string {
	switch f {
	case PublicKey:
		return g.GuardianPublicKey
	case DecryptionKey:
		return g.GuardianDecryptionKey
	case PartialDecryptedTally:
		return g.PartialDecryptedTally
	case TallyShare:
		return g.TallyShare
	case KeyBackup:
		return g.KeyBackup
	}
	return nil
}

// HasArtifact reports whether the field holds a non blank value.
func (g *Guardian) HasArtifact(f ArtifactField) bool {
	return !IsBlank(g.Artifact(f))
}

// DecryptionStatus returns a short label for the decryption contribution.
func (g *Guardian) DecryptionStatus() string {
	if g.DecryptedOrNot {
		return "decrypted"
	}
	return "pending"
}

// IsBlank reports whether an optional artifact value is absent or only
// contains whitespace.
func IsBlank(v *string) bool {
	return v == nil || strings.TrimSpace(*v) == ""
}

// GuardiansResponse is the payload returned by the guardian service.
type GuardiansResponse struct {
	Success   bool       `json:"success"`
	Guardians []Guardian `json:"guardians,omitempty"`
	Error     string     `json:"error,omitempty"`
}
