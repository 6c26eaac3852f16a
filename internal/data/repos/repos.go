package repos

import (
	"github.com/yungbote/contentline-backend/internal/data/repos/content"
	"github.com/yungbote/contentline-backend/internal/data/repos/directory"
	"github.com/yungbote/contentline-backend/internal/data/repos/integration"
	"github.com/yungbote/contentline-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type ContentVersionRepo = content.ContentVersionRepo
type ContentFileRepo = content.ContentFileRepo
type ContentWithdrawalRepo = content.ContentWithdrawalRepo
type VersionChangeRepo = content.VersionChangeRepo
type CohortModuleAssignmentRepo = content.CohortModuleAssignmentRepo

type DirectoryRepo = directory.DirectoryRepo

type SyncLogRepo = integration.SyncLogRepo

func NewContentVersionRepo(db *gorm.DB, baseLog *logger.Logger) ContentVersionRepo {
	return content.NewContentVersionRepo(db, baseLog)
}
func NewContentFileRepo(db *gorm.DB, baseLog *logger.Logger) ContentFileRepo {
	return content.NewContentFileRepo(db, baseLog)
}
func NewContentWithdrawalRepo(db *gorm.DB, baseLog *logger.Logger) ContentWithdrawalRepo {
	return content.NewContentWithdrawalRepo(db, baseLog)
}
func NewVersionChangeRepo(db *gorm.DB, baseLog *logger.Logger) VersionChangeRepo {
	return content.NewVersionChangeRepo(db, baseLog)
}
func NewCohortModuleAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) CohortModuleAssignmentRepo {
	return content.NewCohortModuleAssignmentRepo(db, baseLog)
}

func NewDirectoryRepo(db *gorm.DB, baseLog *logger.Logger) DirectoryRepo {
	return directory.NewDirectoryRepo(db, baseLog)
}

func NewSyncLogRepo(db *gorm.DB, baseLog *logger.Logger) SyncLogRepo {
	return integration.NewSyncLogRepo(db, baseLog)
}

// Set bundles every table repo the content aggregates and services depend on.
type Set struct {
	Versions    ContentVersionRepo
	Files       ContentFileRepo
	Withdrawals ContentWithdrawalRepo
	Changes     VersionChangeRepo
	Assignments CohortModuleAssignmentRepo
	Directory   DirectoryRepo
	SyncLog     SyncLogRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Versions:    NewContentVersionRepo(db, baseLog),
		Files:       NewContentFileRepo(db, baseLog),
		Withdrawals: NewContentWithdrawalRepo(db, baseLog),
		Changes:     NewVersionChangeRepo(db, baseLog),
		Assignments: NewCohortModuleAssignmentRepo(db, baseLog),
		Directory:   NewDirectoryRepo(db, baseLog),
		SyncLog:     NewSyncLogRepo(db, baseLog),
	}
}
