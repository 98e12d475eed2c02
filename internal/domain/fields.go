package domain

import "github.com/Contextualist/submit-patch/internal/pkg/pointers"

// The editable-field schemas live here as enumerated descriptor
// tables. Patch creation, display diffing, and accept write-back all
// walk the same table, so a field is added in exactly one place.

// FieldChange is one editable field's before/after/edited triple, as
// consumed by the diff engine.
type FieldChange struct {
	Field       string
	DiffContext int
	Proposed    *string
	Original    *string
	Edited      *string
}

// SubjectEdit carries the text values of a subject suggestion form or
// a reviewer override.
type SubjectEdit struct {
	Name    string
	Infobox string
	Summary string
	Nsfw    bool
}

// EpisodeEdit carries the text values of an episode suggestion form.
type EpisodeEdit struct {
	Name        string
	NameCN      string
	Duration    string
	Airdate     string
	Description string
}

type subjectField struct {
	name        string
	diffContext int
	editValue   func(SubjectEdit) string
	wikiValue   func(SubjectWiki) string
	proposed    func(*SubjectPatch) *string
	original    func(*SubjectPatch) *string
	edited      func(*SubjectPatch) *string
	setProposed func(*SubjectPatch, *string, *string)
	setEdited   func(*SubjectPatch, *string)
}

var subjectFields = []subjectField{
	{
		name:        "name",
		diffContext: 3,
		editValue:   func(e SubjectEdit) string { return e.Name },
		wikiValue:   func(w SubjectWiki) string { return w.Name },
		proposed:    func(p *SubjectPatch) *string { return p.Name },
		original:    func(p *SubjectPatch) *string { return p.OriginalName },
		edited:      func(p *SubjectPatch) *string { return p.EditedName },
		setProposed: func(p *SubjectPatch, v, orig *string) { p.Name, p.OriginalName = v, orig },
		setEdited:   func(p *SubjectPatch, v *string) { p.EditedName = v },
	},
	{
		// infobox entries are long, give reviewers a wider window
		name:        "infobox",
		diffContext: 5,
		editValue:   func(e SubjectEdit) string { return e.Infobox },
		wikiValue:   func(w SubjectWiki) string { return w.Infobox },
		proposed:    func(p *SubjectPatch) *string { return p.Infobox },
		original:    func(p *SubjectPatch) *string { return p.OriginalInfobox },
		edited:      func(p *SubjectPatch) *string { return p.EditedInfobox },
		setProposed: func(p *SubjectPatch, v, orig *string) { p.Infobox, p.OriginalInfobox = v, orig },
		setEdited:   func(p *SubjectPatch, v *string) { p.EditedInfobox = v },
	},
	{
		name:        "summary",
		diffContext: 3,
		editValue:   func(e SubjectEdit) string { return e.Summary },
		wikiValue:   func(w SubjectWiki) string { return w.Summary },
		proposed:    func(p *SubjectPatch) *string { return p.Summary },
		original:    func(p *SubjectPatch) *string { return p.OriginalSummary },
		edited:      func(p *SubjectPatch) *string { return p.EditedSummary },
		setProposed: func(p *SubjectPatch, v, orig *string) { p.Summary, p.OriginalSummary = v, orig },
		setEdited:   func(p *SubjectPatch, v *string) { p.EditedSummary = v },
	},
}

type episodeField struct {
	name        string
	column      string // db column when it differs from name
	diffContext int
	editValue   func(EpisodeEdit) string
	wikiValue   func(EpisodeWiki) string
	proposed    func(*EpisodePatch) *string
	original    func(*EpisodePatch) *string
	edited      func(*EpisodePatch) *string
	setProposed func(*EpisodePatch, *string, *string)
	setEdited   func(*EpisodePatch, *string)
}

var episodeFields = []episodeField{
	{
		name:        "name",
		diffContext: 3,
		editValue:   func(e EpisodeEdit) string { return e.Name },
		wikiValue:   func(w EpisodeWiki) string { return w.Name },
		proposed:    func(p *EpisodePatch) *string { return p.Name },
		original:    func(p *EpisodePatch) *string { return p.OriginalName },
		edited:      func(p *EpisodePatch) *string { return p.EditedName },
		setProposed: func(p *EpisodePatch, v, orig *string) { p.Name, p.OriginalName = v, orig },
		setEdited:   func(p *EpisodePatch, v *string) { p.EditedName = v },
	},
	{
		name:        "name_cn",
		diffContext: 3,
		editValue:   func(e EpisodeEdit) string { return e.NameCN },
		wikiValue:   func(w EpisodeWiki) string { return w.NameCN },
		proposed:    func(p *EpisodePatch) *string { return p.NameCN },
		original:    func(p *EpisodePatch) *string { return p.OriginalNameCN },
		edited:      func(p *EpisodePatch) *string { return p.EditedNameCN },
		setProposed: func(p *EpisodePatch, v, orig *string) { p.NameCN, p.OriginalNameCN = v, orig },
		setEdited:   func(p *EpisodePatch, v *string) { p.EditedNameCN = v },
	},
	{
		name:        "duration",
		diffContext: 3,
		editValue:   func(e EpisodeEdit) string { return e.Duration },
		wikiValue:   func(w EpisodeWiki) string { return w.Duration },
		proposed:    func(p *EpisodePatch) *string { return p.Duration },
		original:    func(p *EpisodePatch) *string { return p.OriginalDuration },
		edited:      func(p *EpisodePatch) *string { return p.EditedDuration },
		setProposed: func(p *EpisodePatch, v, orig *string) { p.Duration, p.OriginalDuration = v, orig },
		setEdited:   func(p *EpisodePatch, v *string) { p.EditedDuration = v },
	},
	{
		name:        "airdate",
		diffContext: 3,
		editValue:   func(e EpisodeEdit) string { return e.Airdate },
		wikiValue:   func(w EpisodeWiki) string { return w.Airdate },
		proposed:    func(p *EpisodePatch) *string { return p.Airdate },
		original:    func(p *EpisodePatch) *string { return p.OriginalAirdate },
		edited:      func(p *EpisodePatch) *string { return p.EditedAirdate },
		setProposed: func(p *EpisodePatch, v, orig *string) { p.Airdate, p.OriginalAirdate = v, orig },
		setEdited:   func(p *EpisodePatch, v *string) { p.EditedAirdate = v },
	},
	{
		// "description" is the episode field; the column is prefixed to
		// keep it apart from the shared justification column.
		name:        "description",
		column:      "ep_description",
		diffContext: 5,
		editValue:   func(e EpisodeEdit) string { return e.Description },
		wikiValue:   func(w EpisodeWiki) string { return w.Description },
		proposed:    func(p *EpisodePatch) *string { return p.Description },
		original:    func(p *EpisodePatch) *string { return p.OriginalDescription },
		edited:      func(p *EpisodePatch) *string { return p.EditedDescription },
		setProposed: func(p *EpisodePatch, v, orig *string) { p.Description, p.OriginalDescription = v, orig },
		setEdited:   func(p *EpisodePatch, v *string) { p.EditedDescription = v },
	},
}

// NewSubjectPatch compares the submitted values against the current
// wiki snapshot and returns a patch containing only the fields that
// differ, each with its original captured from the snapshot. The
// second return is false when nothing differs; such a patch must not
// be persisted.
func NewSubjectPatch(subjectID int64, edit SubjectEdit, wiki SubjectWiki) (*SubjectPatch, bool) {
	p := &SubjectPatch{
		SubjectID:   subjectID,
		SubjectType: wiki.TypeID,
	}
	changed := false
	for _, f := range subjectFields {
		after := f.editValue(edit)
		before := f.wikiValue(wiki)
		if after == before {
			continue
		}
		f.setProposed(p, &after, &before)
		changed = true
	}
	// The flag compares by resulting boolean, not raw form input.
	if edit.Nsfw != wiki.Nsfw {
		p.Nsfw = pointers.Ptr(edit.Nsfw)
		changed = true
	}
	return p, changed
}

// NewEpisodePatch is the episode counterpart of NewSubjectPatch.
func NewEpisodePatch(episodeID int64, edit EpisodeEdit, wiki EpisodeWiki) (*EpisodePatch, bool) {
	p := &EpisodePatch{
		EpisodeID: episodeID,
	}
	changed := false
	for _, f := range episodeFields {
		after := f.editValue(edit)
		before := f.wikiValue(wiki)
		if after == before {
			continue
		}
		f.setProposed(p, &after, &before)
		changed = true
	}
	return p, changed
}

// Changes lists every editable field with its proposed/original/edited
// values. Unchanged fields are included with nil values so the caller
// renders an empty diff for them.
func (p *SubjectPatch) Changes() []FieldChange {
	out := make([]FieldChange, 0, len(subjectFields))
	for _, f := range subjectFields {
		out = append(out, FieldChange{
			Field:       f.name,
			DiffContext: f.diffContext,
			Proposed:    f.proposed(p),
			Original:    f.original(p),
			Edited:      f.edited(p),
		})
	}
	return out
}

func (p *EpisodePatch) Changes() []FieldChange {
	out := make([]FieldChange, 0, len(episodeFields))
	for _, f := range episodeFields {
		out = append(out, FieldChange{
			Field:       f.name,
			DiffContext: f.diffContext,
			Proposed:    f.proposed(p),
			Original:    f.original(p),
			Edited:      f.edited(p),
		})
	}
	return out
}

// ApplyReview resolves the final value of every proposed field at
// accept time: the reviewer's override when one was supplied, the
// submitter's proposal otherwise. Finals are recorded in the edited_*
// fields and returned keyed by field name for the wiki write-back.
func (p *SubjectPatch) ApplyReview(overrides map[string]string) map[string]any {
	updates := make(map[string]any)
	for _, f := range subjectFields {
		proposed := f.proposed(p)
		if proposed == nil {
			continue
		}
		final := *proposed
		if v, ok := overrides[f.name]; ok {
			final = v
		}
		f.setEdited(p, &final)
		updates[f.name] = final
	}
	if p.Nsfw != nil {
		updates["nsfw"] = *p.Nsfw
	}
	return updates
}

// ApplyReview is the episode counterpart of SubjectPatch.ApplyReview.
func (p *EpisodePatch) ApplyReview(overrides map[string]string) map[string]any {
	updates := make(map[string]any)
	for _, f := range episodeFields {
		proposed := f.proposed(p)
		if proposed == nil {
			continue
		}
		final := *proposed
		if v, ok := overrides[f.name]; ok {
			final = v
		}
		f.setEdited(p, &final)
		updates[f.name] = final
	}
	return updates
}

// EditedColumns returns the edited_* column values for persisting a
// review, keyed by column name.
func (p *SubjectPatch) EditedColumns() map[string]interface{} {
	out := make(map[string]interface{}, len(subjectFields))
	for _, f := range subjectFields {
		out["edited_"+f.name] = f.edited(p)
	}
	return out
}

func (p *EpisodePatch) EditedColumns() map[string]interface{} {
	out := make(map[string]interface{}, len(episodeFields))
	for _, f := range episodeFields {
		col := f.column
		if col == "" {
			col = f.name
		}
		out["edited_"+col] = f.edited(p)
	}
	return out
}
