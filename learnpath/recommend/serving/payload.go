// Package serving is the request boundary around the recommendation core:
// payload validation and decoding, response encoding and the caller-side
// fallback policy.
package serving

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"

	"github.com/ZanzyTHEbar/learnpath/learnpath/recommend/service"
)

//go:embed schemas/recommend_request.schema.json
var requestSchema []byte

// Skill scales accepted in requests
const (
	ScaleUnit    = "unit"    // scores already in [0,1]
	ScalePercent = "percent" // 0-100 proficiency
)

// RecommendRequest is the wire form of one recommendation request
type RecommendRequest struct {
	LearnerID     string             `json:"learner_id"`
	Skills        map[string]float64 `json:"skills,omitempty"`
	SkillScale    string             `json:"skill_scale,omitempty"`
	LearningStyle string             `json:"learning_style,omitempty"`
	Aspirations   []string           `json:"aspirations,omitempty"`
	K             *int               `json:"k,omitempty"`
}

// Profile converts the request into a learner profile, folding percent
// proficiencies onto [0,1]
func (r RecommendRequest) Profile() service.LearnerProfile {
	skills := make(map[string]float64, len(r.Skills))
	for name, score := range r.Skills {
		if r.SkillScale == ScalePercent {
			score = service.NormalizeProficiency(score)
		}
		skills[name] = score
	}
	return service.LearnerProfile{
		Skills:      skills,
		Style:       service.LearningStyle(r.LearningStyle),
		Aspirations: r.Aspirations,
	}
}

// FieldError is a single schema violation
type FieldError struct {
	Field   string
	Message string
}

// SchemaError lists every schema violation of a payload. It matches
// service.ErrInvalidProfile under errors.Is.
type SchemaError struct {
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %s", fe.Field, fe.Message)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *SchemaError) Unwrap() error {
	return service.ErrInvalidProfile
}

// PayloadDecoder validates request payloads against the embedded schema
type PayloadDecoder struct {
	schema *gojsonschema.Schema
}

// NewPayloadDecoder compiles the request schema
func NewPayloadDecoder() (*PayloadDecoder, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(requestSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile request schema: %w", err)
	}
	return &PayloadDecoder{schema: schema}, nil
}

// Decode validates and decodes one request
func (d *PayloadDecoder) Decode(data []byte) (RecommendRequest, error) {
	var req RecommendRequest

	if !json.Valid(data) {
		return req, fmt.Errorf("%w: payload is not valid JSON", service.ErrInvalidProfile)
	}

	result, err := d.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return req, fmt.Errorf("%w: %v", service.ErrInvalidProfile, err)
	}
	if !result.Valid() {
		se := &SchemaError{}
		for _, re := range result.Errors() {
			se.Errors = append(se.Errors, FieldError{Field: re.Field(), Message: re.Description()})
		}
		return req, se
	}

	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("%w: %v", service.ErrInvalidProfile, err)
	}
	if req.SkillScale == "" {
		req.SkillScale = ScaleUnit
	}
	if req.SkillScale == ScaleUnit {
		for name, score := range req.Skills {
			if score > 1 {
				return req, &SchemaError{Errors: []FieldError{{
					Field:   "skills." + name,
					Message: fmt.Sprintf("%v exceeds 1; use skill_scale \"percent\" for 0-100 scores", score),
				}}}
			}
		}
	}

	return req, nil
}

// Response is the wire form of a recommendation result
type Response struct {
	RequestID       string                         `json:"request_id"`
	LearnerID       string                         `json:"learner_id"`
	Source          Source                         `json:"source"`
	ScoreSemantic   service.ScoreSemantic          `json:"score_semantic,omitempty"`
	Recommendations []service.RankedRecommendation `json:"recommendations"`
}

// EncodeResponse renders a response as JSON
func EncodeResponse(resp Response) ([]byte, error) {
	if resp.Recommendations == nil {
		resp.Recommendations = []service.RankedRecommendation{}
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}
