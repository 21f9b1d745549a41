package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lucasfalb/aijarvis-system/internal/models"
	"github.com/lucasfalb/aijarvis-system/pkg/logger"
)

const (
	routeFlowGetFiles   = "get_project_files"
	routeFlowAddFile    = "add_project_file"
	routeFlowDeleteFile = "delete_file"
)

// FileService proxies a project's knowledge files to the automation
// service, which owns their storage.
type FileService struct {
	authz  *Authorizer
	logs   *ActivityLogService
	poster Poster
	url    string
}

func NewFileService(authz *Authorizer, logs *ActivityLogService, poster Poster, url string) *FileService {
	return &FileService{authz: authz, logs: logs, poster: poster, url: url}
}

func (s *FileService) List(ctx context.Context, actor Actor, projectID uint) (json.RawMessage, error) {
	if _, err := s.authz.Require(ctx, actor.ID, projectID, models.ActionViewProject, ""); err != nil {
		return nil, err
	}
	return s.send(ctx, projectID, routeFlowGetFiles, nil, nil, "Failed to fetch project files")
}

func (s *FileService) Upload(ctx context.Context, actor Actor, projectID uint, files []FormFile) (json.RawMessage, error) {
	if len(files) == 0 {
		return nil, validationError("At least one file is required.")
	}
	if _, err := s.authz.Require(ctx, actor.ID, projectID, models.ActionManageFiles, ""); err != nil {
		return nil, err
	}

	data, err := s.send(ctx, projectID, routeFlowAddFile, nil, files, "Failed to upload files")
	if err != nil {
		return nil, err
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.FileName
	}
	s.logs.Record(ctx, actor, projectID, "add_project_file", "project", idString(projectID), nil, map[string]interface{}{"files": names})
	return data, nil
}

func (s *FileService) Delete(ctx context.Context, actor Actor, projectID uint, fileID string) (json.RawMessage, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return nil, validationError("File id is required.")
	}
	if _, err := s.authz.Require(ctx, actor.ID, projectID, models.ActionManageFiles, ""); err != nil {
		return nil, err
	}

	data, err := s.send(ctx, projectID, routeFlowDeleteFile, map[string]string{"fileId": fileID}, nil, "Failed to delete project file")
	if err != nil {
		return nil, err
	}

	s.logs.Record(ctx, actor, projectID, "delete_file", "project", idString(projectID), map[string]string{"file_id": fileID}, nil)
	return data, nil
}

func (s *FileService) send(ctx context.Context, projectID uint, routeFlow string, extra map[string]string, files []FormFile, failure string) (json.RawMessage, error) {
	if s.url == "" {
		return nil, deliveryError("Webhook URL not configured", nil)
	}

	fields := map[string]string{
		"projectId":  idString(projectID),
		"route_flow": routeFlow,
	}
	for k, v := range extra {
		fields[k] = v
	}

	body, err := s.poster.PostMultipart(ctx, s.url, fields, "files", files)
	if err != nil {
		logger.Warn().Err(err).Uint("project_id", projectID).Str("route_flow", routeFlow).Msg("project file request failed")
		return nil, deliveryError(failure, err)
	}
	return asJSON(body), nil
}

// asJSON passes JSON bodies through and wraps anything else as a string.
func asJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return json.RawMessage(quoted)
}
