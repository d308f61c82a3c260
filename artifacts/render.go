package artifacts

import (
	"fmt"

	"go.vocdoni.io/guardians/types"
)

// FieldState is the display state of an artifact field. It is derived from
// the value and its disclosure flag, never stored.
type FieldState int

const (
	// FieldEmpty is a missing or blank value: placeholder shown, export disabled.
	FieldEmpty FieldState = iota
	// FieldCollapsedShort is a value that fits the threshold, shown in full.
	FieldCollapsedShort
	// FieldCollapsedLong is a long value shown truncated.
	FieldCollapsedLong
	// FieldExpanded is a long value shown in full after a toggle.
	FieldExpanded
)

func (s FieldState) String() string {
	switch s {
	case FieldEmpty:
		return "empty"
	case FieldCollapsedShort:
		return "collapsed-short"
	case FieldCollapsedLong:
		return "collapsed-long"
	case FieldExpanded:
		return "expanded"
	}
	return fmt.Sprintf("FieldState(%d)", int(s))
}

// FieldView is what gets displayed for one artifact field.
type FieldView struct {
	Field types.ArtifactField
	State FieldState
	// Text is the display text: the full value, the truncated value or the
	// no data placeholder.
	Text string
	// Toggleable is true when an expand/collapse control is offered.
	Toggleable bool
	// Exportable is true when the field can be exported.
	Exportable bool
}

// RenderField applies the display policy to a raw value. The stored value is
// never modified, truncation only affects Text.
func RenderField(value *string, expanded bool) FieldView {
	if types.IsBlank(value) {
		return FieldView{State: FieldEmpty, Text: types.NoDataText}
	}
	runes := []rune(*value)
	if len(runes) <= types.TruncateThreshold {
		return FieldView{State: FieldCollapsedShort, Text: *value, Exportable: true}
	}
	if expanded {
		return FieldView{State: FieldExpanded, Text: *value, Toggleable: true, Exportable: true}
	}
	return FieldView{
		State:      FieldCollapsedLong,
		Text:       string(runes[:types.TruncateThreshold]) + types.TruncateSuffix,
		Toggleable: true,
		Exportable: true,
	}
}

// GuardianView is the display form of a guardian record.
type GuardianView struct {
	Guardian types.Guardian
	Fields   []FieldView
}

// RenderGuardian renders every artifact field of g, in display order, using
// the flags of d. A nil store renders everything collapsed.
func RenderGuardian(g types.Guardian, d *Disclosure) GuardianView {
	v := GuardianView{Guardian: g, Fields: make([]FieldView, 0, len(types.ArtifactFields))}
	for _, f := range types.ArtifactFields {
		expanded := d != nil && d.IsExpanded(g.ID, f)
		fv := RenderField(g.Artifact(f), expanded)
		fv.Field = f
		v.Fields = append(v.Fields, fv)
	}
	return v
}

// Field returns the view of a single field.
func (v *GuardianView) Field(f types.ArtifactField) FieldView {
	for _, fv := range v.Fields {
		if fv.Field == f {
			return fv
		}
	}
	return FieldView{Field: f, State: FieldEmpty, Text: types.NoDataText}
}

// HeaderText is the summary line shown above the guardian list.
func HeaderText(n int) string {
	if n == 1 {
		return "1 Guardian"
	}
	return fmt.Sprintf("%d Guardians", n)
}
