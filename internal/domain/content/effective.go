package content

import (
	"sort"

	"github.com/google/uuid"
)

// FileIdentity is what makes two files "the same" for diffing purposes.
type FileIdentity struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// EffectiveFile is one entry of the resolved class -> file mapping.
type EffectiveFile struct {
	ClassID uuid.UUID `json:"class_id"`
	FileIdentity
	FileID     uuid.UUID `json:"file_id"`
	IsModified bool      `json:"is_modified"`
	// SourceVersionID is the version in the chain that owns the row.
	SourceVersionID uuid.UUID `json:"source_version_id"`
	SourceCode      string    `json:"source_code"`
}

// EffectiveContent maps class id to the file visible at a version.
type EffectiveContent map[uuid.UUID]EffectiveFile

// Layer is one version's own contribution to a chain fold.
type Layer struct {
	Version   *ContentVersion
	Files     []*ContentFile
	Withdrawn []uuid.UUID
}

// Fold applies layers root-first, last write wins: each layer overwrites the
// classes it owns a file for and drops the classes it withdraws.
func Fold(layers []Layer) EffectiveContent {
	out := EffectiveContent{}
	for _, l := range layers {
		for _, classID := range l.Withdrawn {
			delete(out, classID)
		}
		for _, f := range l.Files {
			if f == nil {
				continue
			}
			ef := EffectiveFile{
				ClassID:      f.ClassID,
				FileIdentity: f.Identity(),
				FileID:       f.ID,
				IsModified:   f.IsModified,
			}
			if l.Version != nil {
				ef.SourceVersionID = l.Version.ID
				ef.SourceCode = l.Version.Code
			}
			out[f.ClassID] = ef
		}
	}
	return out
}

// Sorted returns the entries ordered by class id, for stable output.
func (c EffectiveContent) Sorted() []EffectiveFile {
	out := make([]EffectiveFile, 0, len(c))
	for _, f := range c {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClassID.String() < out[j].ClassID.String() })
	return out
}

// Clone returns an independent copy.
func (c EffectiveContent) Clone() EffectiveContent {
	out := make(EffectiveContent, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Differs reports whether a file with identity id for classID would differ from
// what this view already provides (including when the class is absent).
func (c EffectiveContent) Differs(classID uuid.UUID, id FileIdentity) bool {
	prev, ok := c[classID]
	return !ok || prev.FileIdentity != id
}
