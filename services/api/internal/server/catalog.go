package server

import (
	"net/http"
	"strings"

	"svnglobal/pkg/domain"
	"svnglobal/services/api/internal/app"
)

// /api/products
func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := s.app.ListPublicProducts(r.Context(), productFilter(r))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, nonNil(products))
	case http.MethodPost:
		s.adminOnly(s.handleCreateProduct).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /api/products/all or /api/products/{id}
func (s *Server) handleProductByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/products/")
	if id == "" || strings.Contains(id, "/") {
		s.handleAPINotFound(w, r)
		return
	}
	if id == "all" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.adminOnly(s.handleAllProducts).ServeHTTP(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := s.app.GetPublicProduct(r.Context(), id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, p)
	case http.MethodPut:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.Session) {
			var in domain.ProductInput
			if !decodeJSON(w, r, &in) {
				return
			}
			p, err := s.app.UpdateProduct(r.Context(), id, in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeData(w, http.StatusOK, p)
		}).ServeHTTP(w, r)
	case http.MethodDelete:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.Session) {
			if err := s.app.DeleteProduct(r.Context(), id); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, envelope{Success: true})
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAllProducts(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	products, err := s.app.ListAllProducts(r.Context(), productFilter(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(products))
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	var in domain.ProductInput
	if !decodeJSON(w, r, &in) {
		return
	}
	p, err := s.app.CreateProduct(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// /api/test-reports
func (s *Server) handleTestReports(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		reports, err := s.app.ListPublicTestReports(r.Context(), testReportFilter(r))
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, nonNil(reports))
	case http.MethodPost:
		s.adminOnly(s.handleCreateTestReport).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /api/test-reports/all or /api/test-reports/{id}
func (s *Server) handleTestReportByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/test-reports/")
	if id == "" || strings.Contains(id, "/") {
		s.handleAPINotFound(w, r)
		return
	}
	if id == "all" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.adminOnly(s.handleAllTestReports).ServeHTTP(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		report, err := s.app.GetPublicTestReport(r.Context(), id)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, report)
	case http.MethodPut:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.Session) {
			var in domain.TestReportInput
			if !decodeJSON(w, r, &in) {
				return
			}
			report, err := s.app.UpdateTestReport(r.Context(), id, in)
			if err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeData(w, http.StatusOK, report)
		}).ServeHTTP(w, r)
	case http.MethodDelete:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.Session) {
			if err := s.app.DeleteTestReport(r.Context(), id); err != nil {
				s.writeAppError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, envelope{Success: true})
		}).ServeHTTP(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleAllTestReports(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	reports, err := s.app.ListAllTestReports(r.Context(), testReportFilter(r))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, nonNil(reports))
}

func (s *Server) handleCreateTestReport(w http.ResponseWriter, r *http.Request, _ domain.Session) {
	var in domain.TestReportInput
	if !decodeJSON(w, r, &in) {
		return
	}
	report, err := s.app.CreateTestReport(r.Context(), in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var form domain.ContactForm
	if !decodeJSON(w, r, &form) {
		return
	}
	inq, err := s.app.SubmitInquiry(r.Context(), form)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, inq, "Contact form submitted successfully")
}

func productFilter(r *http.Request) app.ProductFilter {
	return app.ProductFilter{Category: r.URL.Query().Get("category")}
}

func testReportFilter(r *http.Request) app.TestReportFilter {
	q := r.URL.Query()
	return app.TestReportFilter{Category: q.Get("category"), Query: q.Get("q")}
}
