package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/AuditRAG/internal/adapter"
	"github.com/akolanti/AuditRAG/internal/adapter/utils"
	"github.com/akolanti/AuditRAG/internal/api"
	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/internal/security"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response: %v", err)
	}
}

func writeSSE(w http.ResponseWriter, event string, data string) {
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	logRH.With("traceId:", ctx.Value(config.TRACE_ID_KEY).(string))
	if ctx.Err() != nil {
		logRH.Warn("context error", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled")
		return false
	default:
		return true
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, "temporary_data")
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}

// baseJobData carries the request-scoped pieces every job needs: a fresh job
// id, the trace id and the identity resolved by the middleware.
func baseJobData(request *http.Request) newJobData {
	user := requestUser(request.Context())
	return newJobData{
		id:              utils.GetNewUUID(),
		traceId:         request.Context().Value(config.TRACE_ID_KEY).(string),
		role:            user.Role,
		permittedGroups: []string(user.Groups),
	}
}

func chatJobData(request *http.Request, requestData api.ChatRequest) newJobData {
	newData := baseJobData(request)
	newData.jobType = jobModel.JobTypeQuery
	newData.message = requestData.Message
	newData.engine = requestData.Engine

	newData.chatId = requestData.ChatID
	if newData.chatId == "" {
		newData.chatId = utils.GetNewUUID()
		logRH.Debug(" New Chat request : ", "chatID:", newData.chatId)
		newData.isNewChat = true
	}
	return newData
}

func requestUser(ctx context.Context) security.User {
	if user, ok := ctx.Value(config.USER_KEY).(security.User); ok {
		return user
	}
	//only reachable when a handler is mounted without the middleware chain
	user, _ := security.ResolveRole(security.DefaultRole)
	return user
}
