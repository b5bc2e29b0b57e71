package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/TharinduDesh/incidenthub/internal/http/handlers"
	"github.com/gin-gonic/gin"
)

type bindTarget struct {
	Email string `json:"email" binding:"required,email"`
	Count int    `json:"count" binding:"omitempty,min=1"`
}

func bindRoute() *gin.Engine {
	r := gin.New()

	r.POST("/bind", func(c *gin.Context) {
		var req bindTarget
		if !handlers.BindJSON(c, &req) {
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	return r
}

type bindErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   struct {
		Code    string          `json:"code"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func TestBindJSON_ValidBody(t *testing.T) {
	w := doJSON(bindRoute(), http.MethodPost, "/bind", `{"email":"jane@example.com","count":2}`)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestBindJSON_ValidationErrorNamesJSONField(t *testing.T) {
	w := doJSON(bindRoute(), http.MethodPost, "/bind", `{"email":"not-an-email"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	var resp bindErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	if resp.Success {
		t.Fatalf("expected success=false")
	}
	if resp.Error.Code != "invalid_request" {
		t.Fatalf("got code %q", resp.Error.Code)
	}

	var details struct {
		Fields []handlers.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(resp.Error.Details, &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}

	if len(details.Fields) != 1 {
		t.Fatalf("expected one field error, got %+v", details.Fields)
	}
	if details.Fields[0].Field != "email" {
		t.Fatalf("field should use the json tag name, got %q", details.Fields[0].Field)
	}
	if details.Fields[0].Rule != "email" {
		t.Fatalf("got rule %q", details.Fields[0].Rule)
	}
}

func TestBindJSON_SyntaxError(t *testing.T) {
	w := doJSON(bindRoute(), http.MethodPost, "/bind", `{"email": `)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}
}

func TestBindJSON_TypeMismatch(t *testing.T) {
	w := doJSON(bindRoute(), http.MethodPost, "/bind", `{"email":"jane@example.com","count":"two"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400", w.Code)
	}

	var resp bindErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	var details struct {
		JSON  string `json:"json"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(resp.Error.Details, &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}

	if details.JSON != "invalid_json_type" || details.Field != "count" {
		t.Fatalf("unexpected details: %+v", details)
	}
}
