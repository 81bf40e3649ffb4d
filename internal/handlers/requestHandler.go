package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/AuditRAG/internal/adapter"
	"github.com/akolanti/AuditRAG/internal/adapter/utils"
	"github.com/akolanti/AuditRAG/internal/api"
	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
)

var logRH *logger_i.Logger

// newJobData decouples the HTTP layer from job construction; the jobHandler
// turns one of these into a queued job.
type newJobData struct {
	id               string
	chatId           string
	message          string
	engine           string
	isNewChat        bool
	traceId          string
	jobType          jobModel.JobType
	documentName     string
	documentSource   string
	category         string
	accessGroup      string
	deleteDocumentId string
	role             string
	permittedGroups  []string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Start a new chat job
// @Description  Accepts a question, initializes a background processing job, and returns a job ID to track status.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Question, optional chat ID and query engine (standard/router/sub_question)"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.ChatRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Chat handler reader :", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateChatRequest(requestData) {
			logRH.Warn("Bad Chat Request: ", "error:", err, "request data:", requestData)
			WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
			return
		}

		newData := chatJobData(request, requestData)
		CreateNewJob(newData)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newData.id))
		return
	}
	logRH.Warn("Invalid Context by request ", request.RemoteAddr)
}

// ChatStreamHandler godoc
// @Summary      Stream a chat answer
// @Description  Answers synchronously over server-sent events. Tokens arrive as "data:" events, sources and completion as named events.
// @Tags         Messaging
// @Accept       json
// @Produce      text/event-stream
// @Param        request  body  api.ChatRequest  true  "Question, optional chat ID and query engine"
// @Success      200  {string}  string  "SSE stream"
// @Failure      400  {object}  api.JobResponse  "Invalid request data or chat ID"
// @Router       /chat/stream [post]
func ChatStreamHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request ", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer request.Body.Close()
	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateChatRequest(requestData) {
		logRH.Warn("Bad Stream Request: ", "error:", err)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	rc := http.NewResponseController(w)

	newData := chatJobData(request, requestData)
	if newData.isNewChat {
		handlerInstance.initNewChat(newData.chatId, newData.traceId)
	}

	streamJob := jobModel.Job{
		Id:      newData.id,
		ChatId:  newData.chatId,
		TraceId: newData.traceId,
		JobType: jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{
			Question:        newData.message,
			Engine:          commonModels.QueryEngine(newData.engine),
			Role:            newData.role,
			PermittedGroups: newData.permittedGroups,
		},
	}

	resultJob, tokens, err := handlerInstance.ragService.ProcessRequestStream(request.Context(), streamJob)
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, requestData.ChatID, "Generation failed")
		return
	}

	//the server-wide write timeout would cut the stream short
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		logRH.Warn("Could not clear write deadline for stream", "error", err)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeSSE(w, "chat_id", resultJob.ChatId)
	for token := range tokens {
		writeSSE(w, "", token)
		if err := rc.Flush(); err != nil {
			logRH.Warn("Stream flush failed, client likely gone", "error", err)
			return
		}
	}
	if sources, err := json.Marshal(resultJob.JobPayload.Sources); err == nil {
		writeSSE(w, "sources", string(sources))
	}
	writeSSE(w, "done", "")
	if err := rc.Flush(); err != nil {
		logRH.Warn("Stream flush failed", "error", err)
	}
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, r.Context().Value(config.TRACE_ID_KEY).(string))

		logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// PostIngestHandler handles the uploading of documents for ingestion.
// @Summary      Upload a document for ingestion
// @Description  Receives a file via multipart/form-data with its category and access group, saves it to a temporary directory, and queues an ingestion job.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  true   "The display name of the document"
// @Param        category       formData  string  true   "Document category: audit, policy or financial"
// @Param        access_group   formData  string  false  "Access group tag, defaults to GLOBAL_AUDIT"
// @Param        document       formData  file    true   "The PDF, DOCX, PPTX or TXT file to upload"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job_id"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields or file too large"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		targetDir, errString := getTargetDirectory()
		if errString != "" {
			logRH.Error("Couldn't get target directory :", "err", errString)
			WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
			return
		}

		const maxUploadSize = 32 << 20 //32mb
		err := r.ParseMultipartForm(maxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		docName := r.FormValue("document_name")
		if docName == "" {
			WriteErrorResponse(w, http.StatusBadRequest, "", "document_name is required")
			return
		}

		//unknown categories are rejected here, not in the worker
		category := r.FormValue("category")
		if !commonModels.IsValidCategory(commonModels.Category(category)) {
			WriteErrorResponse(w, http.StatusBadRequest, docName, "category must be one of: audit, policy, financial")
			return
		}

		fileReader, fileMetadata, err := r.FormFile("document")
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not retrieve file")
			return
		}
		defer fileReader.Close()

		filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), fileMetadata.Filename)
		tempFilePath := filepath.Join(targetDir, filename)
		destinationFileWriter, err := os.Create(tempFilePath)
		if err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
			return
		}
		defer destinationFileWriter.Close()

		if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
			WriteErrorResponse(w, http.StatusInternalServerError, docName, "Write error")
			return
		}

		newData := baseJobData(r)
		newData.jobType = jobModel.JobTypeIngest
		newData.documentName = docName
		newData.documentSource = tempFilePath
		newData.category = category
		newData.accessGroup = r.FormValue("access_group")
		CreateNewJob(newData)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newData.id))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}

// DeleteDocumentHandler godoc
// @Summary      Delete an ingested document
// @Description  Queues removal of a document: its vector points, parent chunks and every cached answer.
// @Tags         Ingestion
// @Produce      json
// @Param        id   path      string  true  "Document ID (the ingest job ID)"
// @Success      202  {object}  api.InitJobResponse  "Accepted - returns job_id"
// @Failure      400  {object}  api.JobResponse      "Missing document ID"
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		documentId := utils.GetChiURLParam(r, "id")
		if documentId == "" {
			WriteErrorResponse(w, http.StatusBadRequest, "", "document id is required")
			return
		}

		newData := baseJobData(r)
		newData.jobType = jobModel.JobTypeDelete
		newData.deleteDocumentId = documentId
		CreateNewJob(newData)
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newData.id))
		return
	}
	logRH.Warn("Invalid Context by request ", r.RemoteAddr)
}
