package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("testdata", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + filepath.ToSlash(schemaPath))
	require.NoError(t, err)
	return schema
}

func validateAgainst(t *testing.T, schema *jsonschema.Schema, raw json.RawMessage) {
	t.Helper()
	var payload interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.NoError(t, schema.Validate(payload))
}

func TestSubmissionAndDashboardContracts(t *testing.T) {
	submissionSchema := compileSchema(t, "submission_result.schema.json")
	dashboardSchema := compileSchema(t, "student_dashboard.schema.json")

	a := newTestApp(t)
	mentor := tokenFor(t, 100, "mentor")
	studentID := a.createStudent(t, mentor, "xan")
	student := tokenFor(t, studentID, "student")

	q1 := a.createMCQ(t, mentor, "A")
	assignmentID := a.createAssignment(t, mentor, map[string]interface{}{
		"title":              "Contract quiz",
		"mode":               "test",
		"question_ids":       []uint{q1},
		"time_limit_minutes": 1,
	})
	status, _ := a.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/assignments/%d/dispatch", assignmentID), mentor, nil)
	require.Equal(t, http.StatusOK, status)

	path := fmt.Sprintf("/api/v1/assignments/%d/submission", assignmentID)
	status, body := a.do(t, http.MethodPut, path, student, map[string]interface{}{
		"answers":       []map[string]interface{}{{"question_id": q1, "response": "B"}},
		"is_final":      false,
		"time_taken_ms": 1000,
	})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "draft saved", body.Message)
	validateAgainst(t, submissionSchema, body.Data)

	status, body = a.do(t, http.MethodPut, path, student, map[string]interface{}{
		"answers":       []map[string]interface{}{{"question_id": q1, "response": "A"}},
		"is_final":      true,
		"time_taken_ms": 120000,
	})
	require.Equal(t, http.StatusOK, status)
	validateAgainst(t, submissionSchema, body.Data)

	var result struct {
		ExceededTimeLimit bool `json:"exceeded_time_limit"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &result))
	require.True(t, result.ExceededTimeLimit)

	status, body = a.do(t, http.MethodGet, path, student, nil)
	require.Equal(t, http.StatusOK, status)
	validateAgainst(t, submissionSchema, body.Data)

	status, body = a.do(t, http.MethodGet, "/api/v1/student/dashboard", student, nil)
	require.Equal(t, http.StatusOK, status)
	validateAgainst(t, dashboardSchema, body.Data)
}
