// Package export writes simulation results as JSON documents, static plot
// images and interactive HTML charts.
package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/results"
)

// Document is the serialized form of a result. Plots holds base64 PNG
// images keyed by variable name and is filled only on request.
type Document struct {
	CircuitID  string               `json:"circuit_id"`
	Topology   string               `json:"topology"`
	Steps      int                  `json:"steps"`
	TimePoints []float64            `json:"time_points"`
	Variables  map[string][]float64 `json:"variables"`
	Order      []string             `json:"order"`
	Stats      dynamo.Stats         `json:"stats"`
	Plots      map[string]string    `json:"plots,omitempty"`
}

func NewDocument(res *results.Result, withPlots bool) (*Document, error) {
	doc := &Document{
		CircuitID:  res.CircuitID,
		Topology:   res.Topology,
		Steps:      res.Len(),
		TimePoints: res.Time,
		Variables:  res.Variables,
		Order:      res.Names(),
		Stats:      res.Stats,
	}
	if withPlots {
		plots, err := PlotsBase64(res)
		if err != nil {
			return nil, err
		}
		doc.Plots = plots
	}
	return doc, nil
}

func WriteJSON(w io.Writer, res *results.Result, withPlots bool) error {
	doc, err := NewDocument(res, withPlots)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func ExportJSON(path string, res *results.Result, withPlots bool) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteJSON(file, res, withPlots); err != nil {
		return err
	}
	return file.Close()
}

// ReadJSON decodes a document written by WriteJSON back into a result.
func ReadJSON(r io.Reader) (*results.Result, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	res := &results.Result{
		CircuitID: doc.CircuitID,
		Topology:  doc.Topology,
		Time:      doc.TimePoints,
		Variables: doc.Variables,
		Order:     doc.Order,
		Stats:     doc.Stats,
	}
	if res.Variables == nil {
		res.Variables = map[string][]float64{}
	}
	return res, res.Validate()
}
