package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/contentline-backend/internal/domain"
	"github.com/yungbote/contentline-backend/internal/domain/content"
)

// Directory is a seeded client/programme/cohort/module with classes.
type Directory struct {
	Client    *types.Client
	Programme *types.Programme
	Cohort    *types.Cohort
	Module    *types.Module
	Classes   []*types.Class
}

func SeedDirectory(tb testing.TB, ctx context.Context, tx *gorm.DB, classes int) *Directory {
	tb.Helper()
	suffix := uuid.NewString()[:8]
	d := &Directory{
		Client: &types.Client{ID: uuid.New(), Name: "client-" + suffix},
	}
	d.Programme = &types.Programme{ID: uuid.New(), ClientID: d.Client.ID, Name: "programme-" + suffix}
	d.Cohort = &types.Cohort{ID: uuid.New(), ProgrammeID: d.Programme.ID, Name: "cohort-" + suffix}
	d.Module = &types.Module{ID: uuid.New(), ProgrammeID: d.Programme.ID, Name: "module-" + suffix}
	for _, row := range []interface{}{d.Client, d.Programme, d.Cohort, d.Module} {
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			tb.Fatalf("seed directory: %v", err)
		}
	}
	for i := 0; i < classes; i++ {
		d.Classes = append(d.Classes, SeedClass(tb, ctx, tx, d.Module.ID, i))
	}
	return d
}

func SeedCohort(tb testing.TB, ctx context.Context, tx *gorm.DB, programmeID uuid.UUID) *types.Cohort {
	tb.Helper()
	c := &types.Cohort{ID: uuid.New(), ProgrammeID: programmeID, Name: "cohort-" + uuid.NewString()[:8]}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed cohort: %v", err)
	}
	return c
}

func SeedModule(tb testing.TB, ctx context.Context, tx *gorm.DB, programmeID uuid.UUID) *types.Module {
	tb.Helper()
	m := &types.Module{ID: uuid.New(), ProgrammeID: programmeID, Name: "module-" + uuid.NewString()[:8]}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed module: %v", err)
	}
	return m
}

func SeedClass(tb testing.TB, ctx context.Context, tx *gorm.DB, moduleID uuid.UUID, index int) *types.Class {
	tb.Helper()
	c := &types.Class{ID: uuid.New(), ModuleID: moduleID, Name: fmt.Sprintf("class-%d", index+1), SortIndex: index}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed class: %v", err)
	}
	return c
}

// UniqueCode returns a version code that does not collide across tests sharing a database.
func UniqueCode(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

func SeedVersion(tb testing.TB, ctx context.Context, tx *gorm.DB, d *Directory, code string, parentID *uuid.UUID) *types.ContentVersion {
	tb.Helper()
	v := &types.ContentVersion{
		ID:        uuid.New(),
		Code:      code,
		CohortID:  d.Cohort.ID,
		ModuleID:  d.Module.ID,
		ParentID:  parentID,
		Status:    content.VersionNotStarted,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed version: %v", err)
	}
	return v
}

func SeedFile(tb testing.TB, ctx context.Context, tx *gorm.DB, versionID, classID uuid.UUID, name string, modified bool) *types.ContentFile {
	tb.Helper()
	f := &types.ContentFile{
		ID:         uuid.New(),
		VersionID:  versionID,
		ClassID:    classID,
		Path:       "/content/" + name,
		Name:       name,
		Type:       "pptx",
		IsModified: modified,
	}
	if err := tx.WithContext(ctx).Create(f).Error; err != nil {
		tb.Fatalf("seed file: %v", err)
	}
	return f
}

func PtrUUID(id uuid.UUID) *uuid.UUID { return &id }
