package pagination

import (
	"errors"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestParsePageSizeDefaults(t *testing.T) {
	params, err := Parse(url.Values{}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size %d, got %d", DefaultPageSize, params.PageSize)
	}
	if params.PageToken != "" {
		t.Fatalf("expected empty page token, got %q", params.PageToken)
	}
}

func TestParsePageSizeClampsToMax(t *testing.T) {
	values := url.Values{"page_size": []string{"500"}}
	params, err := Parse(values, Options{MaxPageSize: 25})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if params.PageSize != 25 {
		t.Fatalf("expected clamped page size 25, got %d", params.PageSize)
	}
}

func TestParsePageSizeRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"non-numeric": "abc",
		"zero":        "0",
		"negative":    "-5",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(url.Values{"page_size": []string{raw}}, Options{})
			if !errors.Is(err, ErrInvalidPageSize) {
				t.Fatalf("expected ErrInvalidPageSize, got %v", err)
			}
		})
	}
}

func TestFromRequestReadsQueryParams(t *testing.T) {
	token, err := EncodeToken(Cursor{StartAfter: []any{"0042"}})
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}

	r := httptest.NewRequest("GET", "/orders?page_size=10&page_token="+token, nil)
	params, err := FromRequest(r, Options{})
	if err != nil {
		t.Fatalf("FromRequest returned error: %v", err)
	}
	if params.PageSize != 10 {
		t.Fatalf("expected page size 10, got %d", params.PageSize)
	}
	if params.PageToken != token {
		t.Fatalf("expected token %q, got %q", token, params.PageToken)
	}
	if len(params.Cursor.StartAfter) != 1 || params.Cursor.StartAfter[0] != "0042" {
		t.Fatalf("unexpected cursor: %+v", params.Cursor)
	}
}

func TestFromRequestRejectsBadToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/orders?page_token=tok123", nil)
	if _, err := FromRequest(r, Options{}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	cursor := Cursor{StartAfter: []any{"0042"}, Filter: "status=ready"}
	token, err := EncodeToken(cursor)
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	params, err := Parse(url.Values{"page_token": []string{token}}, Options{})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(params.Cursor.StartAfter) != 1 || params.Cursor.StartAfter[0] != "0042" {
		t.Fatalf("unexpected cursor: %+v", params.Cursor)
	}
	if params.Cursor.Filter != "status=ready" {
		t.Fatalf("unexpected cursor filter: %q", params.Cursor.Filter)
	}
}

func TestEncodeTokenEmptyCursor(t *testing.T) {
	token, err := EncodeToken(Cursor{})
	if err != nil {
		t.Fatalf("EncodeToken returned error: %v", err)
	}
	if token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
}

func TestDecodeTokenRejectsGarbage(t *testing.T) {
	if _, err := DecodeToken("!!not-base64!!"); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
}
