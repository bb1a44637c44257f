package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"svnglobal/pkg/domain"
)

// multipart overhead allowed on top of the file size cap
const uploadSlackBytes = 1 << 20

type inquiryUpdateRequest struct {
	IsRead *bool `json:"is_read"`
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats(r.Context())
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (s *Server) handleAdminInquiries(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	items, err := s.app.ListInquiries(r.Context(), unread)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

// /api/admin/inquiries/{id}
func (s *Server) handleAdminInquiryByID(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	id := strings.TrimPrefix(r.URL.Path, "/api/admin/inquiries/")
	if id == "" || strings.Contains(id, "/") {
		s.handleAPINotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPatch:
		var req inquiryUpdateRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.IsRead == nil {
			writeError(w, http.StatusBadRequest, "is_read is required")
			return
		}
		if err := s.app.MarkInquiryRead(r.Context(), id, *req.IsRead); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true})
	case http.MethodDelete:
		if err := s.app.DeleteInquiry(r.Context(), id); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true})
	default:
		methodNotAllowed(w)
	}
}

// /api/admin/uploads/{bucket} or /api/admin/uploads/{bucket}/{key...}
func (s *Server) handleAdminUploads(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/admin/uploads/")
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		s.handleAPINotFound(w, r)
		return
	}
	switch {
	case r.Method == http.MethodPost && key == "":
		s.handleUpload(w, r, sess, bucket)
	case r.Method == http.MethodDelete && key != "":
		if err := s.app.DeleteUpload(r.Context(), bucket, key); err != nil {
			s.writeAppError(w, r, err)
			return
		}
		s.audit(r, "admin.upload_delete", "success", "user_id", sess.User.ID, "bucket", bucket, "key", key)
		writeJSON(w, http.StatusOK, envelope{Success: true})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, sess domain.Session, bucket string) {
	limit := s.app.MaxUploadBytes(bucket)
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+uploadSlackBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()

	res, err := s.app.Upload(r.Context(), bucket, header.Filename, file, header.Size)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	s.audit(r, "admin.upload", "success", "user_id", sess.User.ID, "bucket", bucket, "key", res.Key, "size", res.Size)
	writeData(w, http.StatusCreated, res)
}
