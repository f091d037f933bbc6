package problemsource_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codearena/internal/match/problemsource"
)

func completionBody(t *testing.T, content string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return body
}

func TestFetchParsesGeneratedProblem(t *testing.T) {
	t.Parallel()
	problem := `{
		"title": "Two Sum",
		"description": "Find indices.",
		"initial_code": "Solution = {}",
		"entry_point": {"method": "twoSum", "params": ["nums", "target"]},
		"test_cases": [
			{"input": "nums = [2, 7], target = 9", "output": "[0, 1]"},
			{"input": "nums = [3, 3], target = 6", "output": "[0, 1]"},
			{"input": "nums = [1, 2], target = 3", "output": "[0, 1]"},
			{"input": "nums = [0, 4], target = 4", "output": "[0, 1]"},
			{"input": "nums = [5, 5], target = 10", "output": "[0, 1]"}
		]
	}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_, _ = w.Write(completionBody(t, problem))
	}))
	defer server.Close()

	client := problemsource.NewClient(problemsource.Config{BaseURL: server.URL, APIKey: "test-key"})
	got, err := client.Fetch(context.Background(), "Arrays", "Easy")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected a problem")
	}
	if got.Title != "Two Sum" {
		t.Fatalf("expected title Two Sum, got %q", got.Title)
	}
	if got.Entry.Method != "twoSum" {
		t.Fatalf("expected entry method twoSum, got %q", got.Entry.Method)
	}
	if len(got.TestCases) != 5 {
		t.Fatalf("expected 5 test cases, got %d", len(got.TestCases))
	}
	if got.Topic != "Arrays" || got.Difficulty != "Easy" {
		t.Fatalf("expected topic/difficulty carried through, got %q/%q", got.Topic, got.Difficulty)
	}
}

func TestFetchFailuresReturnNil(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server-error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed-content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				body, _ := json.Marshal(map[string]interface{}{
					"choices": []map[string]interface{}{
						{"message": map[string]string{"content": "not json"}},
					},
				})
				_, _ = w.Write(body)
			},
		},
		{
			name: "no-choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices": []}`))
			},
		},
		{
			name: "incomplete-problem",
			handler: func(w http.ResponseWriter, r *http.Request) {
				body, _ := json.Marshal(map[string]interface{}{
					"choices": []map[string]interface{}{
						{"message": map[string]string{"content": `{"title": ""}`}},
					},
				})
				_, _ = w.Write(body)
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := problemsource.NewClient(problemsource.Config{BaseURL: server.URL, APIKey: "test-key"})
			got, err := client.Fetch(context.Background(), "Arrays", "Easy")
			if err != nil {
				t.Fatalf("expected soft failure, got error: %v", err)
			}
			if got != nil {
				t.Fatalf("expected nil problem, got %+v", got)
			}
		})
	}
}

func TestFetchWithoutConfiguration(t *testing.T) {
	t.Parallel()
	client := problemsource.NewClient(problemsource.Config{})
	got, err := client.Fetch(context.Background(), "Arrays", "Easy")
	if err != nil || got != nil {
		t.Fatalf("expected nil/nil for unconfigured source, got %v/%v", got, err)
	}
}
