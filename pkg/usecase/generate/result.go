package generate

import (
	"strings"

	"github.com/tidwall/gjson"
)

// OutcomeKind tags the interpretation of one poll response
type OutcomeKind int

const (
	// OutcomePending means the operation is not done yet
	OutcomePending OutcomeKind = iota
	// OutcomeReady means a video URI was extracted
	OutcomeReady
	// OutcomeError means the operation reported a failure
	OutcomeError
	// OutcomeFiltered means the job completed but was safety-filtered
	OutcomeFiltered
	// OutcomeBlocked means the prompt itself was blocked
	OutcomeBlocked
	// OutcomeUnrecognized means a done payload matched no known shape
	OutcomeUnrecognized
)

// Outcome is the typed result of interpreting one poll response.
type Outcome struct {
	Kind     OutcomeKind
	Message  string
	VideoURI string
}

// IsTerminal reports whether the outcome ends the polling loop
func (o Outcome) IsTerminal() bool {
	return o.Kind != OutcomePending
}

const rawExcerptLimit = 300

func excerpt(raw []byte) string {
	s := string(raw)
	if len(s) > rawExcerptLimit {
		return s[:rawExcerptLimit] + "..."
	}
	return s
}

// firstExisting returns the first sub-document that exists among the
// given paths, probing the historically observed nestings of the done
// payload.
func firstExisting(root gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := root.Get(p); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

// InterpretOperation maps a raw operation payload onto a typed Outcome.
// The done payload's shape varies across model versions, so the probes
// run in a fixed order over every known nesting, and anything that
// matches none of them is a failure, never a silent success.
func InterpretOperation(raw []byte) Outcome {
	root := gjson.ParseBytes(raw)

	if errObj := root.Get("error"); errObj.Exists() {
		msg := errObj.Get("message").String()
		if msg == "" {
			msg = "Operation failed with error"
		}
		return Outcome{Kind: OutcomeError, Message: msg}
	}

	if !root.Get("done").Bool() {
		return Outcome{Kind: OutcomePending}
	}

	if respErr := root.Get("response.error"); respErr.Exists() {
		msg := respErr.Get("message").String()
		if msg == "" {
			msg = "Generation failed"
		}
		return Outcome{Kind: OutcomeError, Message: msg}
	}

	payload := firstExisting(root, "response.generateVideoResponse", "response", "result")

	if reasons := payload.Get("raiMediaFilteredReasons"); reasons.IsArray() && len(reasons.Array()) > 0 {
		joined := make([]string, 0, len(reasons.Array()))
		for _, r := range reasons.Array() {
			joined = append(joined, r.String())
		}
		return Outcome{
			Kind:    OutcomeFiltered,
			Message: "Generation filtered: " + strings.Join(joined, ", "),
		}
	}

	if payload.Get("raiMediaFilteredCount").Int() > 0 {
		return Outcome{Kind: OutcomeFiltered, Message: "Generation filtered by safety policies."}
	}

	uri := firstExisting(payload,
		"generatedVideos.0.video.uri",
		"generatedSamples.0.video.uri",
	)
	if !uri.Exists() {
		uri = root.Get("response.generatedVideos.0.video.uri")
	}
	if uri.Exists() && uri.String() != "" {
		return Outcome{Kind: OutcomeReady, VideoURI: uri.String()}
	}

	blocked := firstExisting(root,
		"response.promptFeedback.blockReason",
		"result.promptFeedback.blockReason",
	)
	if blocked.Exists() && blocked.String() != "" {
		return Outcome{Kind: OutcomeBlocked, Message: "Generation blocked: " + blocked.String()}
	}

	return Outcome{
		Kind:    OutcomeUnrecognized,
		Message: "No video URI returned. Response: " + excerpt(raw),
	}
}
