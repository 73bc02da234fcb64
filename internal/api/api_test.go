package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/convsim/internal/api"
	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/config"
	"github.com/san-kum/convsim/internal/engine"
	"github.com/san-kum/convsim/internal/results"
)

type recordingSink struct {
	published chan *results.Result
}

func (s *recordingSink) Publish(_ context.Context, res *results.Result) error {
	s.published <- res
	return nil
}

func (s *recordingSink) Close() error { return nil }

type document struct {
	CircuitID  string               `json:"circuit_id"`
	Topology   string               `json:"topology"`
	TimePoints []float64            `json:"time_points"`
	Variables  map[string][]float64 `json:"variables"`
	Plots      map[string]string    `json:"plots"`
	Error      string               `json:"error"`
}

var _ = Describe("Server", func() {
	var (
		srv     *httptest.Server
		sink    *recordingSink
		dataDir string
		rc      *circuit.Circuit
	)

	do := func(method, path string, body any) (*http.Response, []byte) {
		var r io.Reader
		switch b := body.(type) {
		case nil:
		case string:
			r = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			Expect(err).NotTo(HaveOccurred())
			r = bytes.NewReader(data)
		}
		req, err := http.NewRequest(method, srv.URL+path, r)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, data
	}

	BeforeEach(func() {
		dataDir = GinkgoT().TempDir()
		sink = &recordingSink{published: make(chan *results.Result, 8)}
		rc = config.GetPreset("rc").Circuit()

		s := api.New(api.Options{
			Engine:       engine.New(),
			Defaults:     engine.Params{EndTime: 1e-3, StepSize: 1e-5},
			MaxEndTime:   0.01,
			MaxBodyBytes: 64 << 10,
			DataDir:      dataDir,
			Sink:         sink,
		})
		srv = httptest.NewServer(s.Handler())
		DeferCleanup(srv.Close)
	})

	It("reports health", func() {
		resp, body := do(http.MethodGet, "/health", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`"ok"`))
	})

	It("serves the component library", func() {
		resp, body := do(http.MethodGet, "/components", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var lib map[string][]circuit.LibraryEntry
		Expect(json.Unmarshal(body, &lib)).To(Succeed())
		Expect(lib).To(HaveKey("passive"))
		Expect(lib).To(HaveKey("converters"))
	})

	It("lists presets", func() {
		resp, body := do(http.MethodGet, "/presets", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		var presets []struct{ Name string }
		Expect(json.Unmarshal(body, &presets)).To(Succeed())
		Expect(presets).To(HaveLen(len(config.ListPresets())))
	})

	Describe("session circuits", func() {
		BeforeEach(func() {
			resp, body := do(http.MethodPut, "/circuit/s1", rc)
			Expect(resp.StatusCode).To(Equal(http.StatusOK), string(body))
			Expect(string(body)).To(ContainSubstring(`"generic"`))
		})

		It("returns the stored circuit", func() {
			resp, body := do(http.MethodGet, "/circuit/s1", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var got circuit.Circuit
			Expect(json.Unmarshal(body, &got)).To(Succeed())
			Expect(got.ID).To(Equal(rc.ID))
			Expect(got.Components).To(HaveLen(len(rc.Components)))
		})

		It("simulates the stored circuit", func() {
			resp, body := do(http.MethodPost, "/simulate", map[string]any{"circuit_id": "s1"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK), string(body))

			var doc document
			Expect(json.Unmarshal(body, &doc)).To(Succeed())
			Expect(doc.CircuitID).To(Equal(rc.ID))
			Expect(doc.Topology).To(Equal("generic"))
			Expect(doc.TimePoints).To(HaveLen(101))
			for name, v := range doc.Variables {
				Expect(v).To(HaveLen(101), name)
			}
			Expect(doc.Plots).To(BeEmpty())

			var published *results.Result
			Eventually(sink.published).Should(Receive(&published))
			Expect(published.CircuitID).To(Equal(rc.ID))
		})

		It("deletes the stored circuit", func() {
			resp, _ := do(http.MethodDelete, "/circuit/s1", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp, _ = do(http.MethodGet, "/circuit/s1", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("saves it to a file and loads it back", func() {
			resp, body := do(http.MethodPost, "/circuits/my_rc?from=s1", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK), string(body))
			Expect(filepath.Join(dataDir, "my_rc.json")).To(BeAnExistingFile())

			resp, body = do(http.MethodGet, "/circuits", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(string(body)).To(ContainSubstring(`"my_rc"`))

			resp, body = do(http.MethodGet, "/circuits/my_rc.json?session=s2", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK), string(body))

			resp, _ = do(http.MethodGet, "/circuit/s2", nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	It("simulates an inline circuit with plots", func() {
		req := map[string]any{"circuit": rc, "end_time": 2e-4, "step_size": 1e-5}
		resp, body := do(http.MethodPost, "/simulate?plots=1", req)
		Expect(resp.StatusCode).To(Equal(http.StatusOK), string(body))

		var doc document
		Expect(json.Unmarshal(body, &doc)).To(Succeed())
		Expect(doc.TimePoints).To(HaveLen(21))
		Expect(doc.Plots).NotTo(BeEmpty())
	})

	DescribeTable("rejects bad simulation requests",
		func(body any, status int) {
			resp, data := do(http.MethodPost, "/simulate", body)
			Expect(resp.StatusCode).To(Equal(status), string(data))

			var doc document
			Expect(json.Unmarshal(data, &doc)).To(Succeed())
			Expect(doc.Error).NotTo(BeEmpty())
		},
		Entry("no circuit", map[string]any{}, http.StatusBadRequest),
		Entry("unknown session", map[string]any{"circuit_id": "nope"}, http.StatusNotFound),
		Entry("malformed JSON", `{"circuit":`, http.StatusBadRequest),
		Entry("end time over limit", map[string]any{"circuit": config.GetPreset("rc").Circuit(), "end_time": 1.0}, http.StatusBadRequest),
		Entry("negative step", map[string]any{"circuit": config.GetPreset("rc").Circuit(), "step_size": -1}, http.StatusBadRequest),
		Entry("step too fine for the step limit", map[string]any{"circuit": config.GetPreset("rc").Circuit(), "step_size": 1e-16}, http.StatusBadRequest),
		Entry("too large", `{"circuit_id":"`+strings.Repeat("x", 70<<10)+`"}`, http.StatusRequestEntityTooLarge),
	)

	It("rejects unsafe file names", func() {
		resp, _ := do(http.MethodGet, "/circuits/..hidden", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		entries, err := os.ReadDir(dataDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("exports prometheus metrics", func() {
		resp, _ := do(http.MethodPost, "/simulate", map[string]any{"circuit": rc})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		resp, _ = do(http.MethodPost, "/simulate", map[string]any{"circuit": rc, "step_size": 0})
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

		resp, body := do(http.MethodGet, "/metrics", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(string(body)).To(ContainSubstring(`convsim_simulations_total{outcome="ok",topology="generic"} 1`))
		Expect(string(body)).To(ContainSubstring(`convsim_simulations_total{outcome="invalid",topology="generic"} 1`))
		Expect(string(body)).To(ContainSubstring(`convsim_http_requests_total{route="simulate",status="400"} 1`))
	})
})
