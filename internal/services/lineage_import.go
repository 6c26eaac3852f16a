package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	domainagg "github.com/yungbote/contentline-backend/internal/domain/aggregates"
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
)

// LineageManifest describes one (cohort, module) lineage for bulk import.
// Versions must be listed parents first; parents are referenced by code.
type LineageManifest struct {
	CohortID uuid.UUID         `yaml:"cohort_id"`
	ModuleID uuid.UUID         `yaml:"module_id"`
	Assign   bool              `yaml:"assign"`
	Current  string            `yaml:"current"`
	Versions []ManifestVersion `yaml:"versions"`
}

type ManifestVersion struct {
	Code           string               `yaml:"code"`
	Parent         string               `yaml:"parent"`
	VersionNumber  string               `yaml:"version_number"`
	DeliveryMethod string               `yaml:"delivery_method"`
	Status         string               `yaml:"status"`
	CreatedBy      string               `yaml:"created_by"`
	Notes          string               `yaml:"notes"`
	Files          []ManifestFile       `yaml:"files"`
	Withdrawals    []ManifestWithdrawal `yaml:"withdrawals"`
	Finalize       bool                 `yaml:"finalize"`
}

type ManifestFile struct {
	ClassID uuid.UUID `yaml:"class_id"`
	Path    string    `yaml:"path"`
	Name    string    `yaml:"name"`
	Type    string    `yaml:"type"`
}

type ManifestWithdrawal struct {
	ClassID uuid.UUID `yaml:"class_id"`
	Reason  string    `yaml:"reason"`
}

// ImportReport summarizes what an import did.
type ImportReport struct {
	Created      []string `json:"created"`
	Skipped      []string `json:"skipped"`
	Files        int      `json:"files"`
	Withdrawals  int      `json:"withdrawals"`
	Finalized    []string `json:"finalized"`
	AssignmentID string   `json:"assignment_id,omitempty"`
}

func ParseLineageManifest(r io.Reader) (*LineageManifest, error) {
	var m LineageManifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.CohortID == uuid.Nil || m.ModuleID == uuid.Nil {
		return nil, fmt.Errorf("parse manifest: cohort_id and module_id are required")
	}
	seen := make(map[string]struct{}, len(m.Versions))
	for i, v := range m.Versions {
		code := strings.TrimSpace(v.Code)
		if code == "" {
			return nil, fmt.Errorf("parse manifest: versions[%d] has no code", i)
		}
		if _, dup := seen[code]; dup {
			return nil, fmt.Errorf("parse manifest: duplicate version code %q", code)
		}
		seen[code] = struct{}{}
	}
	return &m, nil
}

// LineageImporter replays a manifest through the content service, so every row
// passes the same lineage, scoping and cycle checks as an API write.
type LineageImporter struct {
	log *logger.Logger
	svc ContentService
}

func NewLineageImporter(baseLog *logger.Logger, svc ContentService) *LineageImporter {
	return &LineageImporter{log: baseLog.With("service", "LineageImporter"), svc: svc}
}

// Import applies m. Versions whose code already exists in the same lineage are
// reused; their files are still applied.
func (imp *LineageImporter) Import(ctx context.Context, m *LineageManifest) (*ImportReport, error) {
	report := &ImportReport{}
	byCode := make(map[string]*content.ContentVersion, len(m.Versions))

	resolveRef := func(code string) (*content.ContentVersion, error) {
		if v, ok := byCode[code]; ok {
			return v, nil
		}
		v, err := imp.svc.LookupVersion(ctx, code)
		if err != nil {
			return nil, err
		}
		byCode[code] = v
		return v, nil
	}

	for _, mv := range m.Versions {
		code := strings.TrimSpace(mv.Code)
		var parentID *uuid.UUID
		if p := strings.TrimSpace(mv.Parent); p != "" {
			parent, err := resolveRef(p)
			if err != nil {
				return report, fmt.Errorf("version %s: parent %s: %w", code, p, err)
			}
			parentID = &parent.ID
		}

		v, err := imp.svc.GetVersionByCode(ctx, code)
		switch {
		case err == nil:
			if v.CohortID != m.CohortID || v.ModuleID != m.ModuleID {
				return report, domainagg.NewRefError(domainagg.CodeLineageMismatch, "Content.Import",
					"existing version belongs to another lineage", "version", code)
			}
			report.Skipped = append(report.Skipped, code)
		case domainagg.IsCode(err, domainagg.CodeUnknownVersion):
			status := content.VersionNotStarted
			if raw := strings.TrimSpace(mv.Status); raw != "" {
				parsed, perr := content.ParseVersionStatus(raw)
				if perr != nil {
					return report, fmt.Errorf("version %s: %w", code, perr)
				}
				status = parsed
			}
			v, err = imp.svc.CreateVersion(ctx, domainagg.CreateVersionInput{
				Code:           code,
				CohortID:       m.CohortID,
				ModuleID:       m.ModuleID,
				ParentID:       parentID,
				VersionNumber:  mv.VersionNumber,
				DeliveryMethod: mv.DeliveryMethod,
				Status:         status,
				CreatedBy:      mv.CreatedBy,
				Notes:          mv.Notes,
			})
			if err != nil {
				return report, fmt.Errorf("version %s: %w", code, err)
			}
			report.Created = append(report.Created, code)
		default:
			return report, fmt.Errorf("version %s: %w", code, err)
		}
		byCode[code] = v

		for _, f := range mv.Files {
			if _, err := imp.svc.PutFile(ctx, domainagg.PutFileInput{
				VersionID: v.ID,
				ClassID:   f.ClassID,
				Path:      f.Path,
				Name:      f.Name,
				Type:      f.Type,
			}); err != nil {
				return report, fmt.Errorf("version %s: file %s: %w", code, f.Name, err)
			}
			report.Files++
		}
		for _, w := range mv.Withdrawals {
			if _, err := imp.svc.WithdrawClass(ctx, domainagg.WithdrawClassInput{
				VersionID: v.ID,
				ClassID:   w.ClassID,
				Reason:    w.Reason,
			}); err != nil {
				return report, fmt.Errorf("version %s: withdraw %s: %w", code, w.ClassID, err)
			}
			report.Withdrawals++
		}
		if mv.Finalize && !v.IsFinalized() {
			if _, err := imp.svc.FinalizeDiff(ctx, domainagg.FinalizeInput{VersionID: v.ID}); err != nil {
				return report, fmt.Errorf("version %s: finalize: %w", code, err)
			}
			report.Finalized = append(report.Finalized, code)
		}
	}

	if m.Assign {
		a, err := imp.svc.GetAssignmentFor(ctx, m.CohortID, m.ModuleID)
		if domainagg.IsCode(err, domainagg.CodeNotFound) {
			a, err = imp.svc.Assign(ctx, domainagg.AssignInput{CohortID: m.CohortID, ModuleID: m.ModuleID})
		}
		if err != nil {
			return report, fmt.Errorf("assign: %w", err)
		}
		if cur := strings.TrimSpace(m.Current); cur != "" {
			v, err := resolveRef(cur)
			if err != nil {
				return report, fmt.Errorf("current %s: %w", cur, err)
			}
			if a, err = imp.svc.AdvanceVersion(ctx, a.ID, v.ID); err != nil {
				return report, fmt.Errorf("advance %s: %w", cur, err)
			}
		}
		report.AssignmentID = a.ID.String()
	}

	imp.log.Info("lineage manifest imported",
		"cohort_id", m.CohortID,
		"module_id", m.ModuleID,
		"created", len(report.Created),
		"skipped", len(report.Skipped),
		"files", report.Files,
	)
	return report, nil
}
