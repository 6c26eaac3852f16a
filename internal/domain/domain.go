package domain

import (
	"github.com/yungbote/contentline-backend/internal/domain/content"
	"github.com/yungbote/contentline-backend/internal/domain/directory"
	"github.com/yungbote/contentline-backend/internal/domain/integration"
)

type ContentVersion = content.ContentVersion
type ContentFile = content.ContentFile
type ContentWithdrawal = content.ContentWithdrawal
type VersionChange = content.VersionChange
type CohortModuleAssignment = content.CohortModuleAssignment

type VersionStatus = content.VersionStatus
type AssignmentStatus = content.AssignmentStatus
type ChangeType = content.ChangeType
type EffectiveContent = content.EffectiveContent
type EffectiveFile = content.EffectiveFile

type Client = directory.Client
type Programme = directory.Programme
type Cohort = directory.Cohort
type Module = directory.Module
type Class = directory.Class

type IntegrationSyncLog = integration.SyncLog
