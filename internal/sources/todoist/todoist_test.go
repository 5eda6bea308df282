package todoist

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchTasks_Array(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		io.WriteString(w, `[
			{"id": "1", "content": "Buy milk", "due": {"date": "2025-03-10", "datetime": "2025-03-10T17:00:00Z"}},
			{"id": 2, "content": "", "due": null},
			{"id": "3", "content": "Call mom", "due": {"date": "2025-03-11"}}
		]`)
	}))
	defer srv.Close()

	tasks, err := New("tok", srv.URL).FetchTasks(context.Background())
	if err != nil {
		t.Fatalf("FetchTasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].ID != "1" || tasks[0].Title != "Buy milk" {
		t.Errorf("task[0] = %+v", tasks[0])
	}
	if want := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC); tasks[0].Due == nil || !tasks[0].Due.Equal(want) {
		t.Errorf("task[0].Due = %v, want %v", tasks[0].Due, want)
	}
	if tasks[1].ID != "2" || tasks[1].Due != nil {
		t.Errorf("task[1] = %+v", tasks[1])
	}
	if want := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC); tasks[2].Due == nil || !tasks[2].Due.Equal(want) {
		t.Errorf("task[2].Due = %v, want %v", tasks[2].Due, want)
	}
}

func TestFetchTasks_Paginated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("cursor") {
		case "":
			io.WriteString(w, `{"results": [{"id": "1", "content": "a"}], "next_cursor": "c2"}`)
		case "c2":
			io.WriteString(w, `{"results": [{"id": "2", "content": "b"}], "next_cursor": null}`)
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer srv.Close()

	tasks, err := New("tok", srv.URL).FetchTasks(context.Background())
	if err != nil {
		t.Fatalf("FetchTasks: %v", err)
	}
	if len(tasks) != 2 || tasks[0].Title != "a" || tasks[1].Title != "b" {
		t.Errorf("tasks = %+v", tasks)
	}
}

func TestFetchTasks_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results": [], "next_cursor": null}`)
	}))
	defer srv.Close()

	tasks, err := New("tok", srv.URL).FetchTasks(context.Background())
	if err != nil {
		t.Fatalf("FetchTasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
}

func TestFetchTasks_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := New("tok", srv.URL).FetchTasks(context.Background()); err == nil {
		t.Fatal("expected error for 403")
	}
}

func TestParseDue(t *testing.T) {
	tests := []struct {
		name string
		due  *apiDue
		want string // RFC3339, "" for nil
	}{
		{"nil", nil, ""},
		{"empty", &apiDue{}, ""},
		{"date only", &apiDue{Date: "2025-03-10"}, "2025-03-10T00:00:00Z"},
		{"floating datetime", &apiDue{Date: "2025-03-10T09:30:00"}, "2025-03-10T09:30:00Z"},
		{"datetime with offset", &apiDue{Datetime: "2025-03-10T09:30:00+02:00"}, "2025-03-10T09:30:00+02:00"},
		{"datetime preferred", &apiDue{Date: "2025-03-10", Datetime: "2025-03-10T12:00:00Z"}, "2025-03-10T12:00:00Z"},
		{"garbage", &apiDue{Date: "next tuesday"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseDue(tt.due)
			if tt.want == "" {
				if got != nil {
					t.Errorf("expected nil, got %v", got)
				}
				return
			}
			if got == nil || got.Format(time.RFC3339) != tt.want {
				t.Errorf("parseDue = %v, want %s", got, tt.want)
			}
		})
	}
}
