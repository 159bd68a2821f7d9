package guard

import (
	"fmt"
	"net/http"
	"net/url"
)

// FetchResult is the outcome of Fetch: either a final response or a denial
// reason from a redirect hop that Guard rejected.
type FetchResult struct {
	Response *http.Response
	Denied   string
}

// Fetch performs an HTTP request, never letting net/http auto-follow
// redirects: every redirect hop re-enters CheckURL before being followed,
// per §4.4's "redirects are never followed automatically" rule. The
// caller-supplied client must have CheckRedirect disabled
// (http.ErrUseLastResponse or an equivalent no-op).
func (g *Guard) Fetch(client *http.Client, req *http.Request, toolPolicy *ToolPolicy) (FetchResult, error) {
	currentURL := req.URL.String()
	method := req.Method

	for hop := 0; ; hop++ {
		if hop > MaxRedirects {
			return FetchResult{Denied: fmt.Sprintf("redirect loop: exceeded %d hops", MaxRedirects)}, nil
		}

		check := g.CheckURL(currentURL, method, toolPolicy)
		if !check.Allowed {
			return FetchResult{Denied: check.Reason}, nil
		}

		hopReq := req.Clone(req.Context())
		parsed, err := url.Parse(currentURL)
		if err != nil {
			return FetchResult{Denied: "unparseable URL"}, nil
		}
		hopReq.URL = parsed

		resp, err := client.Do(hopReq)
		if err != nil {
			return FetchResult{}, err
		}

		if !isRedirectStatus(resp.StatusCode) {
			return FetchResult{Response: resp}, nil
		}

		location := resp.Header.Get("Location")
		resp.Body.Close()
		if location == "" {
			return FetchResult{Denied: "redirect response missing Location"}, nil
		}

		nextURL, err := parsed.Parse(location)
		if err != nil {
			return FetchResult{Denied: "unresolvable redirect Location"}, nil
		}
		currentURL = nextURL.String()
		// GET/HEAD redirects keep method; 307/308 preserve method by spec,
		// 301/302/303 conventionally downgrade non-GET to GET.
		if resp.StatusCode == http.StatusSeeOther || (resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound) {
			if method != http.MethodGet && method != http.MethodHead {
				method = http.MethodGet
			}
		}
	}
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}
