package server

import "fmt"

// Kind discriminates the response variants a handler return value can
// normalize to. The resolver matches on Kind exhaustively; there is no
// runtime type inspection past Normalize.
type Kind int

const (
	// KindEmpty means the handler returned nothing; the dispatcher
	// falls back to the auto-template lookup.
	KindEmpty Kind = iota

	// KindText is an HTML/text body with a status code.
	KindText

	// KindJSON is a JSON-encoded mapping with a status code.
	KindJSON

	// KindInvalid marks an unsupported return shape, emitted as a 500
	// "invalid response".
	KindInvalid
)

// Response is the normalized, tagged form of a handler's return value.
// It is a transient per-request decision, never stored.
type Response struct {
	Kind   Kind
	Status int
	Text   string         // body for KindText / KindInvalid
	Data   map[string]any // body for KindJSON
}

// Pair is the explicit (body, status) return shape. The body must be a
// string or a mapping; anything else resolves to a 500.
type Pair struct {
	Body   any
	Status int
}

// Text returns a 200 text response value.
func Text(s string) Response { return Response{Kind: KindText, Status: 200, Text: s} }

// JSON returns a 200 JSON response value.
func JSON(m map[string]any) Response { return Response{Kind: KindJSON, Status: 200, Data: m} }

func invalid() Response {
	return Response{Kind: KindInvalid, Status: 500, Text: "invalid response"}
}

// Normalize maps a handler's raw return value to a Response following a
// fixed decision table, first match wins:
//
//	nil or ""                     -> empty (auto-template fallback)
//	string                        -> 200 text
//	mapping                       -> 200 JSON
//	Pair / 2-element slice        -> given status, text or JSON by body type
//	other Pair body, other length -> 500 invalid response
//	anything else                 -> 200 text, best-effort stringification
func Normalize(ret any) Response {
	switch v := ret.(type) {
	case nil:
		return Response{Kind: KindEmpty}
	case Response:
		return v
	case string:
		if v == "" {
			return Response{Kind: KindEmpty}
		}
		return Response{Kind: KindText, Status: 200, Text: v}
	case map[string]any:
		return Response{Kind: KindJSON, Status: 200, Data: v}
	case map[string]string:
		m := make(map[string]any, len(v))
		for k, s := range v {
			m[k] = s
		}
		return Response{Kind: KindJSON, Status: 200, Data: m}
	case Pair:
		return normalizePair(v)
	case *Pair:
		return normalizePair(*v)
	case []any:
		if len(v) != 2 {
			return invalid()
		}
		status, ok := v[1].(int)
		if !ok {
			return invalid()
		}
		return normalizePair(Pair{Body: v[0], Status: status})
	default:
		return Response{Kind: KindText, Status: 200, Text: fmt.Sprint(ret)}
	}
}

func normalizePair(p Pair) Response {
	switch body := p.Body.(type) {
	case string:
		return Response{Kind: KindText, Status: p.Status, Text: body}
	case map[string]any:
		return Response{Kind: KindJSON, Status: p.Status, Data: body}
	case map[string]string:
		m := make(map[string]any, len(body))
		for k, s := range body {
			m[k] = s
		}
		return Response{Kind: KindJSON, Status: p.Status, Data: m}
	default:
		return invalid()
	}
}

// NormalizeRecovery maps an error-handler's return value to a Response.
// Recovery values default to status 500: a string is a 500 body, a
// mapping a 500 JSON document, and an integer a bare status code with
// an empty body.
func NormalizeRecovery(ret any) Response {
	switch v := ret.(type) {
	case nil:
		return Response{Kind: KindText, Status: 500}
	case Response:
		return v
	case string:
		return Response{Kind: KindText, Status: 500, Text: v}
	case map[string]any:
		return Response{Kind: KindJSON, Status: 500, Data: v}
	case int:
		return Response{Kind: KindText, Status: v}
	default:
		return Response{Kind: KindText, Status: 500, Text: fmt.Sprint(ret)}
	}
}
