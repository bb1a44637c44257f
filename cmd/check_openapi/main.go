package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type openAPIDoc struct {
	Paths      map[string]map[string]operation `yaml:"paths"`
	Components struct {
		Schemas map[string]schema `yaml:"schemas"`
	} `yaml:"components"`
}

type operation struct {
	Security  []map[string][]string `yaml:"security"`
	Responses map[string]any        `yaml:"responses"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

type route struct {
	Method string
	Path   string
	Admin  bool
}

// routes mirrors the API router. Admin routes must declare bearer security.
var routes = []route{
	{"get", "/api/health", false},
	{"get", "/api/client-config", false},
	{"get", "/api/content", false},
	{"get", "/api/content/{page}", false},
	{"get", "/api/products", false},
	{"post", "/api/products", true},
	{"get", "/api/products/all", true},
	{"get", "/api/products/{id}", false},
	{"put", "/api/products/{id}", true},
	{"delete", "/api/products/{id}", true},
	{"get", "/api/test-reports", false},
	{"post", "/api/test-reports", true},
	{"get", "/api/test-reports/all", true},
	{"get", "/api/test-reports/{id}", false},
	{"put", "/api/test-reports/{id}", true},
	{"delete", "/api/test-reports/{id}", true},
	{"post", "/api/contact", false},
	{"get", "/api/admin/stats", true},
	{"get", "/api/admin/inquiries", true},
	{"patch", "/api/admin/inquiries/{id}", true},
	{"delete", "/api/admin/inquiries/{id}", true},
	{"post", "/api/admin/uploads/{bucket}", true},
	{"delete", "/api/admin/uploads/{bucket}/{key}", true},
	{"post", "/api/auth/signup", false},
	{"post", "/api/auth/login", false},
	{"post", "/api/auth/logout", true},
	{"get", "/api/auth/session", true},
	{"post", "/api/auth/claim-admin", true},
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <openapi.yaml>\n", os.Args[0])
		os.Exit(2)
	}

	doc, err := loadDoc(os.Args[1])
	if err != nil {
		exitErr(err)
	}
	if errs := check(doc); len(errs) > 0 {
		exitErr(errors.Join(errs...))
	}
	fmt.Println("OpenAPI check passed.")
}

func check(doc openAPIDoc) []error {
	var errs []error
	success, err := getSchema(doc, "SuccessResponse")
	if err != nil {
		errs = append(errs, err)
	} else if err := validateSuccessResponse(success); err != nil {
		errs = append(errs, err)
	}
	failure, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		errs = append(errs, err)
	} else if err := validateErrorResponse(failure); err != nil {
		errs = append(errs, err)
	}
	return append(errs, validateRoutes(doc)...)
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

func validateSuccessResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("SuccessResponse must be object")
	}
	if !makeSet(s.Required)["success"] {
		return errors.New("SuccessResponse.required must include \"success\"")
	}
	if prop, ok := s.Properties["success"]; !ok || prop.Type != "boolean" {
		return errors.New("SuccessResponse.success must be boolean")
	}
	if _, ok := s.Properties["data"]; !ok {
		return errors.New("SuccessResponse.data missing")
	}
	if prop, ok := s.Properties["message"]; ok && prop.Type != "string" {
		return errors.New("SuccessResponse.message must be string")
	}
	return nil
}

func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	required := makeSet(s.Required)
	for _, field := range []string{"success", "error"} {
		if !required[field] {
			return fmt.Errorf("ErrorResponse.required must include %q", field)
		}
	}
	if prop, ok := s.Properties["success"]; !ok || prop.Type != "boolean" {
		return errors.New("ErrorResponse.success must be boolean")
	}
	if prop, ok := s.Properties["error"]; !ok || prop.Type != "string" {
		return errors.New("ErrorResponse.error must be string")
	}
	if _, ok := s.Properties["data"]; ok {
		return errors.New("ErrorResponse must not carry data")
	}
	return nil
}

func validateRoutes(doc openAPIDoc) []error {
	var errs []error
	declared := make(map[string]bool)
	for path, ops := range doc.Paths {
		for method := range ops {
			declared[strings.ToLower(method)+" "+path] = true
		}
	}
	for _, rt := range routes {
		key := rt.Method + " " + rt.Path
		op, ok := doc.Paths[rt.Path][rt.Method]
		if !ok {
			errs = append(errs, fmt.Errorf("route %s missing", key))
			continue
		}
		delete(declared, key)
		if len(op.Responses) == 0 {
			errs = append(errs, fmt.Errorf("route %s declares no responses", key))
		}
		if rt.Admin && !hasBearer(op) {
			errs = append(errs, fmt.Errorf("route %s must declare bearerAuth", key))
		}
	}
	extra := make([]string, 0, len(declared))
	for key := range declared {
		extra = append(extra, key)
	}
	sort.Strings(extra)
	for _, key := range extra {
		errs = append(errs, fmt.Errorf("route %s is documented but not served", key))
	}
	return errs
}

func hasBearer(op operation) bool {
	for _, req := range op.Security {
		if _, ok := req["bearerAuth"]; ok {
			return true
		}
	}
	return false
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
