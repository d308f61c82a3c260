package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.vocdoni.io/guardians/log"
	"go.vocdoni.io/guardians/types"
)

var (
	// ErrEmptyField is returned when exporting a field without data. The
	// sink is not called.
	ErrEmptyField = errors.New("no data available to export")
	// ErrSink wraps the errors returned by a Sink.
	ErrSink = errors.New("cannot save manifest")
)

// Manifest kinds, used in logs and metrics.
const (
	KindField    = "field"
	KindGuardian = "guardian"
	KindAll      = "all"
)

// Sink receives the generated manifests. It returns the name the content
// was actually saved as, which may differ from the suggested one.
type Sink interface {
	Save(content []byte, suggestedName string) (string, error)
}

// Result describes a generated manifest.
type Result struct {
	Kind string
	// Name is the suggested file name.
	Name string
	// SavedAs is the name returned by the sink.
	SavedAs string
	// Content is the JSON document handed to the sink.
	Content []byte
	// Manifest is the value Content was encoded from.
	Manifest any
}

// Option configures a Composer.
type Option func(*Composer)

// WithClock replaces the function used to timestamp manifests.
func WithClock(now func() time.Time) Option {
	return func(c *Composer) {
		c.now = now
	}
}

// Composer builds the export manifests of one election and hands them to a
// sink. Manifests are built from the arguments of every call, nothing is
// cached between calls. The timestamp is the time of the call.
type Composer struct {
	electionID string
	sink       Sink
	now        func() time.Time
}

// NewComposer returns a composer for the given election.
func NewComposer(electionID string, sink Sink, opts ...Option) *Composer {
	c := &Composer{
		electionID: electionID,
		sink:       sink,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ElectionID returns the election the composer exports for.
func (c *Composer) ElectionID() string {
	return c.electionID
}

// ExportField exports a single field value of a guardian. The value is used
// as is when it is a string (or *string) and JSON encoded otherwise. Empty or
// absent values are rejected with ErrEmptyField.
func (c *Composer) ExportField(g types.Guardian, fieldName string, fieldValue any) (*Result, error) {
	value, ok := fieldValueString(fieldValue)
	if !ok {
		rejectedExports.WithLabelValues(KindField).Inc()
		log.Debugw("rejected export of empty field",
			"electionID", c.electionID, "guardian", g.ID, "field", fieldName)
		return nil, fmt.Errorf("%w: %s", ErrEmptyField, fieldName)
	}
	m := &types.FieldManifest{
		ElectionID:       c.electionID,
		GuardianID:       g.ID,
		GuardianSequence: g.SequenceOrder,
		GuardianEmail:    g.UserEmail,
		FieldName:        fieldName,
		FieldValue:       value,
		Timestamp:        types.NewTimestamp(c.now()),
	}
	return c.emit(KindField, FieldFilename(g.SequenceOrder, fieldName, c.electionID), m)
}

// ExportArtifact exports one of the known artifact fields of a guardian,
// labelled with the field's display name.
func (c *Composer) ExportArtifact(g types.Guardian, f types.ArtifactField) (*Result, error) {
	return c.ExportField(g, f.Label(), g.Artifact(f))
}

// ExportGuardian exports the complete record of a guardian.
func (c *Composer) ExportGuardian(g types.Guardian) (*Result, error) {
	m := &types.GuardianManifest{
		Guardian:   g,
		ElectionID: c.electionID,
		Timestamp:  types.NewTimestamp(c.now()),
	}
	return c.emit(KindGuardian, GuardianFilename(g.SequenceOrder, c.electionID), m)
}

// ExportAll exports every guardian of the election, in the given order.
func (c *Composer) ExportAll(guardians []types.Guardian) (*Result, error) {
	if guardians == nil {
		guardians = []types.Guardian{}
	}
	m := &types.CollectionManifest{
		ElectionID:     c.electionID,
		Guardians:      guardians,
		TotalGuardians: len(guardians),
		Timestamp:      types.NewTimestamp(c.now()),
	}
	return c.emit(KindAll, CollectionFilename(c.electionID), m)
}

func (c *Composer) emit(kind, name string, manifest any) (*Result, error) {
	content, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("cannot encode %s manifest: %w", kind, err)
	}
	res := &Result{Kind: kind, Name: name, Content: content, Manifest: manifest}
	if c.sink == nil {
		return res, fmt.Errorf("%w %s: no sink configured", ErrSink, name)
	}
	savedAs, err := c.sink.Save(content, name)
	if err != nil {
		log.Warnw("cannot save manifest", "name", name, "error", err)
		return res, fmt.Errorf("%w %s: %w", ErrSink, name, err)
	}
	res.SavedAs = savedAs
	exports.WithLabelValues(kind).Inc()
	log.Infow("manifest exported", "kind", kind, "name", name, "savedAs", savedAs, "size", len(content))
	return res, nil
}

// fieldValueString returns the textual form of an exported value and whether
// it holds any data.
func fieldValueString(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		return v, strings.TrimSpace(v) != ""
	case *string:
		if types.IsBlank(v) {
			return "", false
		}
		return *v, true
	case []byte:
		return string(v), strings.TrimSpace(string(v)) != ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	s := string(data)
	switch s {
	case "null", `""`, "{}", "[]":
		return "", false
	}
	return s, true
}

// FieldFilename is the suggested name of a field manifest:
// guardian_<sequence>_<field>_election_<election>.json
func FieldFilename(sequence int, fieldName, electionID string) string {
	return fmt.Sprintf("guardian_%d_%s_election_%s%s",
		sequence, slug(fieldName), safeName(electionID), types.ManifestExt)
}

// GuardianFilename is the suggested name of a guardian manifest.
func GuardianFilename(sequence int, electionID string) string {
	return fmt.Sprintf("guardian_%d_complete_data_election_%s%s",
		sequence, safeName(electionID), types.ManifestExt)
}

// CollectionFilename is the suggested name of the manifest of all guardians.
func CollectionFilename(electionID string) string {
	return fmt.Sprintf("all_guardians_election_%s%s", safeName(electionID), types.ManifestExt)
}

// slug lower-cases s and turns every run of characters other than ASCII
// letters and digits into a single underscore.
func slug(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "field"
	}
	return b.String()
}

// safeName replaces the characters that are not safe in a file name.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '.', r == '_':
			return r
		}
		return '_'
	}, s)
}
