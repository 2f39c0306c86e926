package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ayusman/signassess/internal/app"
	"github.com/ayusman/signassess/internal/capture"
	"github.com/ayusman/signassess/internal/detector"
	"github.com/ayusman/signassess/internal/server"
	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/sink"
	"github.com/ayusman/signassess/internal/store"
	"github.com/ayusman/signassess/internal/summary"
	"github.com/ayusman/signassess/testdata"
)

// client wraps the test server with JSON helpers.
type client struct {
	t     *testing.T
	url   string
	http  *http.Client
	token string
}

func (c *client) do(method, path string, body, out interface{}) int {
	c.t.Helper()

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.url+path, r)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "signassess.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	mr := miniredis.RunT(t)
	redisSink := sink.NewRedisSink(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer redisSink.Close()

	cam := capture.NewBlankCamera(160, 120)
	cam.SetFPS(60)
	recognizer := detector.NewMockRecognizer()

	application := app.New(app.Config{
		Store:      s,
		Camera:     cam,
		Recognizer: recognizer,
		Sink:       sink.Multi{sink.NewStoreSink(s), redisSink},
	})
	defer application.Close()

	ts := httptest.NewServer(server.New(server.Config{Store: s, App: application}))
	defer ts.Close()

	c := &client{t: t, url: ts.URL, http: ts.Client()}

	t.Run("Register", func(t *testing.T) {
		var resp struct {
			ID    string `json:"id"`
			Token string `json:"token"`
		}
		if status := c.do(http.MethodPost, "/api/users", map[string]string{"name": "Asha"}, &resp); status != http.StatusCreated {
			t.Fatalf("register status = %d, want 201", status)
		}
		c.token = resp.Token
	})

	// The recognizer only reports hands; labels come from trained templates.
	t.Run("TrainSigns", func(t *testing.T) {
		for name, hand := range map[string]detector.HandLandmarks{
			"Hello": detector.HelloLandmarks(),
			"V":     detector.VLandmarks(),
		} {
			var sign struct {
				ID string `json:"id"`
			}
			if status := c.do(http.MethodPost, "/api/signs", map[string]interface{}{"name": name, "tolerance": 0.2}, &sign); status != http.StatusCreated {
				t.Fatalf("create %s status = %d, want 201", name, status)
			}

			body := map[string]interface{}{"samples": []detector.HandLandmarks{hand}}
			if status := c.do(http.MethodPost, "/api/signs/"+sign.ID+"/samples", body, nil); status != http.StatusCreated {
				t.Fatalf("train %s status = %d, want 201", name, status)
			}
		}

		if n := application.Classifier().Len(); n != 2 {
			t.Errorf("classifier templates = %d, want 2", n)
		}
	})

	var record session.Record
	t.Run("AssessmentSession", func(t *testing.T) {
		if status := c.do(http.MethodPost, "/api/session/start", nil, nil); status != http.StatusCreated {
			t.Fatalf("start status = %d, want 201", status)
		}

		perform := func(hand detector.HandLandmarks) {
			recognizer.SetResult(&detector.Result{Hands: []detector.HandLandmarks{hand}})
			calls := recognizer.Calls()
			waitFor(t, func() bool { return recognizer.Calls() >= calls+3 })
		}
		perform(detector.HelloLandmarks())
		perform(detector.VLandmarks())
		perform(detector.HelloLandmarks())

		var resp struct {
			Session session.Record `json:"session"`
			Saved   bool           `json:"saved"`
		}
		if status := c.do(http.MethodPost, "/api/session/stop", nil, &resp); status != http.StatusOK {
			t.Fatalf("stop status = %d, want 200", status)
		}
		if !resp.Saved {
			t.Error("session should be saved")
		}
		record = resp.Session

		want := []summary.SignCount{{Label: "Hello", Count: 2}, {Label: "V", Count: 1}}
		if len(record.TopSigns) != len(want) || record.TopSigns[0] != want[0] || record.TopSigns[1] != want[1] {
			t.Errorf("TopSigns = %+v, want %+v", record.TopSigns, want)
		}
		if record.Username != "Asha" {
			t.Errorf("Username = %q, want Asha", record.Username)
		}
	})

	t.Run("SessionPersisted", func(t *testing.T) {
		var list struct {
			Sessions []struct {
				ID       string              `json:"id"`
				TopSigns []summary.SignCount `json:"top_signs"`
			} `json:"sessions"`
		}
		if status := c.do(http.MethodGet, "/api/sessions", nil, &list); status != http.StatusOK {
			t.Fatalf("list status = %d, want 200", status)
		}
		if len(list.Sessions) != 1 || list.Sessions[0].ID != record.ID {
			t.Fatalf("sessions = %+v, want %s", list.Sessions, record.ID)
		}

		n, err := redisSink.Len(context.Background())
		if err != nil {
			t.Fatalf("redis Len() error = %v", err)
		}
		if n != 1 {
			t.Errorf("redis records = %d, want 1", n)
		}
	})

	t.Run("SummarizeRecordedStream", func(t *testing.T) {
		frames, err := testdata.LoadStream("noisy_transitions")
		if err != nil {
			t.Fatalf("LoadStream() error = %v", err)
		}

		var sum summary.Summary
		body := map[string]interface{}{"frames": frames, "top_n": 1}
		if status := c.do(http.MethodPost, "/api/summarize", body, &sum); status != http.StatusOK {
			t.Fatalf("summarize status = %d, want 200", status)
		}
		if len(sum.TopSigns) != 1 || sum.TopSigns[0] != (summary.SignCount{Label: "V", Count: 2}) {
			t.Errorf("TopSigns = %+v, want [{V 2}]", sum.TopSigns)
		}
	})
}
