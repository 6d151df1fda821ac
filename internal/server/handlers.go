package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dshills/contractpilot/internal/analysis"
	"github.com/dshills/contractpilot/internal/anonymize"
	"github.com/dshills/contractpilot/internal/clause"
	"github.com/dshills/contractpilot/internal/contracttype"
	"github.com/dshills/contractpilot/internal/document"
	"github.com/dshills/contractpilot/internal/lawref"
	"github.com/dshills/contractpilot/internal/schema"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = document.MaxFileSize + 1<<20

// ── Request / response types ────────────────────────────────────────────────

type textRequest struct {
	Text         string `json:"text"`
	ContractType string `json:"contract_type,omitempty"`
}

type anonymizeRequest struct {
	Text            string `json:"text"`
	PreserveAmounts bool   `json:"preserve_amounts"`
}

type restoreRequest struct {
	Text    string             `json:"text"`
	Mapping *anonymize.Mapping `json:"mapping"`
}

type restoreResponse struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	ContractType contracttype.Type    `json:"contract_type"`
	Scores       []contracttype.Score `json:"scores"`
}

type segmentResponse struct {
	Total   int             `json:"total"`
	Clauses []schema.Clause `json:"clauses"`
}

type checklistResponse struct {
	ContractType contracttype.Type      `json:"contract_type"`
	Items        []lawref.ChecklistItem `json:"items"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "ContractPilot API",
		"health":  "/api/v1/health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Version: Version})
}

func (s *Server) handleProvider(w http.ResponseWriter, _ *http.Request) {
	if s.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "분석 모델이 설정되지 않았습니다.")
		return
	}
	writeJSON(w, http.StatusOK, s.provider)
}

// handleAnalyzeFile accepts a multipart upload in the "file" field and an
// optional "contract_type" field.
func (s *Server) handleAnalyzeFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeTooLarge(w)
			return
		}
		writeError(w, http.StatusBadRequest, "multipart 요청을 해석할 수 없습니다: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file 필드가 필요합니다.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.opts.MaxUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "파일을 읽을 수 없습니다.")
		return
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		s.writeTooLarge(w)
		return
	}
	text, err := document.ExtractLimit(header.Filename, data, s.opts.MaxUploadBytes)
	if err != nil {
		s.writeIntakeError(w, err)
		return
	}
	s.analyze(w, r, text, r.FormValue("contract_type"))
}

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.analyze(w, r, req.Text, req.ContractType)
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request, text, typeName string) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "분석 모델이 설정되지 않았습니다.")
		return
	}
	var override contracttype.Type
	if strings.TrimSpace(typeName) != "" {
		t, err := contracttype.Parse(typeName)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		override = t
	}

	res, err := s.analyzer.Analyze(r.Context(), text, override)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrEmptyText),
			errors.Is(err, analysis.ErrNoClauses),
			errors.Is(err, analysis.ErrTooManyClauses):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.logger.Error("analysis failed", "error", err)
			writeError(w, http.StatusInternalServerError, "분석 중 오류가 발생했습니다: "+err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	var req anonymizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Anonymize(req.Text, req.PreserveAmounts))
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, restoreResponse{Text: s.engine.Restore(req.Text, req.Mapping)})
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, classifyResponse{
		ContractType: contracttype.Classify(req.Text),
		Scores:       contracttype.Scores(req.Text),
	})
}

func (s *Server) handleSegment(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	clauses := clause.Split(req.Text)
	if clauses == nil {
		clauses = []schema.Clause{}
	}
	writeJSON(w, http.StatusOK, segmentResponse{Total: len(clauses), Clauses: clauses})
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	if s.laws == nil {
		writeError(w, http.StatusServiceUnavailable, "법령 데이터가 로드되지 않았습니다.")
		return
	}
	t, err := contracttype.Parse(chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, checklistResponse{ContractType: t, Items: s.laws.Checklist(t)})
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func (s *Server) writeIntakeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, document.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "지원하지 않는 파일 형식입니다. (.txt, .md)")
	case errors.Is(err, document.ErrFileTooLarge):
		s.writeTooLarge(w)
	case errors.Is(err, document.ErrEmptyDocument):
		writeError(w, http.StatusBadRequest, "텍스트를 추출할 수 없습니다.")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func (s *Server) writeTooLarge(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "파일 크기가 "+document.FormatSize(s.opts.MaxUploadBytes)+"를 초과합니다.")
}

// decodeJSON decodes the request body into v and writes a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "잘못된 JSON 요청입니다: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
