package placement

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
)

const maxBodyBytes = 1 << 20

// Collect gathers the request payload: the JSON body first, then query
// parameters and form fields (urlencoded or multipart) on top. Repeated
// keys keep every value. Bodies over 1 MiB are not parsed. The body is
// handed back unchanged so later handlers can read it again.
func Collect(r *http.Request) Payload {
	out := Payload{}
	raw, complete := peekBody(r)
	if complete && len(raw) > 0 {
		var obj map[string]any
		if err := json.Unmarshal(raw, &obj); err == nil {
			for k, v := range obj {
				out[k] = v
			}
		}
	}
	overlay(out, r.URL.Query())
	if complete && len(raw) > 0 {
		overlay(out, formValues(r.Header.Get("Content-Type"), raw))
	}
	return out
}

type bodyReader struct {
	io.Reader
	io.Closer
}

// peekBody reads up to maxBodyBytes and puts the read bytes back in front
// of whatever is left. complete is false when the body was larger than the
// cap or could not be read.
func peekBody(r *http.Request) ([]byte, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, true
	}
	body := r.Body
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes+1))
	r.Body = bodyReader{Reader: io.MultiReader(bytes.NewReader(raw), body), Closer: body}
	if err != nil || len(raw) > maxBodyBytes {
		return nil, false
	}
	return raw, true
}

func overlay(dst Payload, vals url.Values) {
	for k, vs := range vals {
		switch len(vs) {
		case 0:
		case 1:
			dst[k] = vs[0]
		default:
			dst[k] = append([]string(nil), vs...)
		}
	}
}

// formValues decodes urlencoded and multipart bodies; file parts are
// skipped. Other content types yield nil.
func formValues(contentType string, raw []byte) url.Values {
	if contentType == "" {
		return nil
	}
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil
	}
	switch mt {
	case "application/x-www-form-urlencoded":
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil
		}
		return form
	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return nil
		}
		form, err := multipart.NewReader(bytes.NewReader(raw), boundary).ReadForm(maxBodyBytes)
		if err != nil {
			return nil
		}
		defer func() { _ = form.RemoveAll() }()
		return url.Values(form.Value)
	}
	return nil
}
