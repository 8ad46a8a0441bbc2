package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"phishguard/internal/models"
)

const maxUpload = 10 << 20

var (
	errMalformedBody = errors.New("malformed request body")
	errUploadSize    = errors.New("file too large or malformed")
	errUploadFile    = errors.New("missing 'file' parameter in form data")
	errUploadCSV     = errors.New("invalid CSV format")
)

// UploadResponse is what we send back to the user
type UploadResponse struct {
	JobID     string `json:"job_id"`
	TotalRows int    `json:"total_rows"`
	Message   string `json:"message"`
}

type jobRequest struct {
	URLs []string `json:"urls"`
}

// uploadHandler accepts either a JSON body {"urls": [...]} or a multipart
// CSV upload with the URL in the first column.
func (s *server) uploadHandler(w http.ResponseWriter, r *http.Request) {
	var urls []string
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		urls, err = readCSVUpload(r)
	} else {
		var req jobRequest
		if json.NewDecoder(io.LimitReader(r.Body, maxUpload)).Decode(&req) != nil {
			err = errMalformedBody
		}
		urls = compact(req.URLs)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(urls) == 0 {
		writeError(w, http.StatusBadRequest, "No URLs provided")
		return
	}

	jobID := uuid.New().String()
	ctx := r.Context()

	if err := s.jobs.CreateJob(ctx, jobID, len(urls)); err != nil {
		log.Printf("DB Error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	tasks := make([]models.Task, len(urls))
	for i, u := range urls {
		tasks[i] = models.Task{JobID: jobID, URL: u}
	}
	if err := s.tasks.Push(ctx, tasks...); err != nil {
		log.Printf("Queue Error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "Failed to queue job")
		return
	}

	writeJSON(w, http.StatusAccepted, UploadResponse{
		JobID:     jobID,
		TotalRows: len(urls),
		Message:   "Job created successfully. Processing started.",
	})
}

func readCSVUpload(r *http.Request) ([]string, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, errUploadSize
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, errUploadFile
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var urls []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errUploadCSV
		}
		if len(record) > 0 {
			urls = append(urls, record[0])
		}
	}
	return compact(urls), nil
}

func compact(in []string) []string {
	var out []string
	for _, u := range in {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
