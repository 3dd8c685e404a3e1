// Package main runs smoke tests against a deployed studio-site API.
//
// Scenarios cover:
//   - Health and metrics endpoints
//   - SEO metadata bundle shape for a route
//   - robots.txt and sitemap.xml
//   - Lead intake rejections (foreign origin, validation, bad JSON)
//   - Honeypot submissions (accepted, never stored)
//   - A real lead submission, only when E2E_SUBMIT_LEAD=1
//
// Usage:
//
//	API_BASE_URL=... SITE_ORIGIN=... go run scripts/e2e/run_e2e.go [scenario-name]
//	API_BASE_URL=... SITE_ORIGIN=... go run scripts/e2e/run_e2e.go              # runs all
//	API_BASE_URL=... SITE_ORIGIN=... go run scripts/e2e/run_e2e.go seo-bundle   # runs one
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var (
	apiBase    string
	siteOrigin string
	client     = &http.Client{Timeout: 15 * time.Second}
)

// ---------------------------------------------------------------------------
// Scenario definition
// ---------------------------------------------------------------------------

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type response struct {
	status int
	header http.Header
	body   string
}

func get(path string) (*response, error) {
	return do(http.MethodGet, path, nil, nil)
}

func postLead(payload interface{}, origin string) (*response, error) {
	var body []byte
	switch v := payload.(type) {
	case string:
		body = []byte(v)
	default:
		body, _ = json.Marshal(v)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	if origin != "" {
		headers["Origin"] = origin
	}
	return do(http.MethodPost, "/api/lead", body, headers)
}

func do(method, path string, body []byte, headers map[string]string) (*response, error) {
	req, err := http.NewRequest(method, apiBase+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return &response{status: resp.StatusCode, header: resp.Header, body: string(data)}, nil
}

func leadPayload() map[string]interface{} {
	return map[string]interface{}{
		"name":         "E2E Smoke Test",
		"purpose":      "Other inquiry",
		"email":        "e2e@example.com",
		"phone_number": "+10000000000",
		"message":      fmt.Sprintf("Automated smoke test at %s", time.Now().UTC().Format(time.RFC3339)),
		"pageUrl":      siteOrigin + "/contact-us",
		"consent":      true,
	}
}

func errorMessage(body string) string {
	var parsed map[string]string
	_ = json.Unmarshal([]byte(body), &parsed)
	return parsed["error"]
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioHealth(t *T) {
	resp, err := get("/health")
	if err != nil {
		t.fatalf("health request failed: %v", err)
		return
	}
	t.check("health returns 200", resp.status == http.StatusOK)
	t.check("health reports ok", strings.Contains(resp.body, `"ok"`))

	resp, err = get("/metrics")
	if err != nil {
		t.fatalf("metrics request failed: %v", err)
		return
	}
	t.check("metrics returns 200", resp.status == http.StatusOK)
}

func scenarioSEOBundle(t *T) {
	resp, err := get("/api/seo?route=/about")
	if err != nil {
		t.fatalf("seo request failed: %v", err)
		return
	}
	t.check("seo returns 200", resp.status == http.StatusOK)

	var bundle struct {
		Title     string `json:"title"`
		Canonical string `json:"canonical"`
		OpenGraph struct {
			Images []string `json:"images"`
		} `json:"openGraph"`
		JSONLD []map[string]interface{} `json:"jsonLd"`
	}
	if err := json.Unmarshal([]byte(resp.body), &bundle); err != nil {
		t.fatalf("seo bundle did not decode: %v", err)
		return
	}
	t.check("title is set", bundle.Title != "")
	t.check("canonical ends with /about", strings.HasSuffix(bundle.Canonical, "/about"))
	t.check("og image is absolute", len(bundle.OpenGraph.Images) == 1 && strings.HasPrefix(bundle.OpenGraph.Images[0], "http"))
	t.check("jsonLd is an array", bundle.JSONLD != nil)
}

func scenarioRobotsAndSitemap(t *T) {
	resp, err := get("/robots.txt")
	if err != nil {
		t.fatalf("robots request failed: %v", err)
		return
	}
	t.check("robots returns 200", resp.status == http.StatusOK)
	t.check("robots names a user agent", strings.HasPrefix(resp.body, "User-agent: *"))

	resp, err = get("/sitemap.xml")
	if err != nil {
		t.fatalf("sitemap request failed: %v", err)
		return
	}
	t.check("sitemap returns 200", resp.status == http.StatusOK)
	t.check("sitemap is xml", strings.HasPrefix(resp.header.Get("Content-Type"), "application/xml"))
	t.check("sitemap lists the home page", strings.Contains(resp.body, "<loc>"+siteOrigin+"/</loc>"))
}

func scenarioForeignOrigin(t *T) {
	resp, err := postLead(leadPayload(), "https://not-the-site.example")
	if err != nil {
		t.fatalf("lead request failed: %v", err)
		return
	}
	t.check("foreign origin is rejected with 403", resp.status == http.StatusForbidden)
}

func scenarioValidation(t *T) {
	payload := leadPayload()
	delete(payload, "name")
	resp, err := postLead(payload, siteOrigin)
	if err != nil {
		t.fatalf("lead request failed: %v", err)
		return
	}
	t.check("missing name returns 400", resp.status == http.StatusBadRequest)
	t.check("error names the field", errorMessage(resp.body) == "Name is required")

	resp, err = postLead("[1,2,3]", siteOrigin)
	if err != nil {
		t.fatalf("lead request failed: %v", err)
		return
	}
	t.check("non-object JSON returns 400", resp.status == http.StatusBadRequest)
	t.check("invalid JSON message", errorMessage(resp.body) == "Invalid JSON payload")
}

func scenarioHoneypot(t *T) {
	payload := leadPayload()
	payload["company"] = "Spam Co"
	resp, err := postLead(payload, siteOrigin)
	if err != nil {
		t.fatalf("lead request failed: %v", err)
		return
	}
	t.check("honeypot returns 200", resp.status == http.StatusOK)
	t.check("honeypot body is ok", strings.TrimSpace(resp.body) == `{"ok":true}`)
}

func scenarioSubmitLead(t *T) {
	if os.Getenv("E2E_SUBMIT_LEAD") != "1" {
		fmt.Println("    SKIP: set E2E_SUBMIT_LEAD=1 to store and email a real lead")
		return
	}
	resp, err := postLead(leadPayload(), siteOrigin)
	if err != nil {
		t.fatalf("lead request failed: %v", err)
		return
	}
	t.check("lead accepted", resp.status == http.StatusOK)
	if resp.status != http.StatusOK {
		fmt.Printf("    response: %d %s\n", resp.status, resp.body)
	}
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	siteOrigin = strings.TrimRight(os.Getenv("SITE_ORIGIN"), "/")
	if apiBase == "" || siteOrigin == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL and SITE_ORIGIN required")
		os.Exit(1)
	}

	scenarios := []scenario{
		{"health", scenarioHealth},
		{"seo-bundle", scenarioSEOBundle},
		{"robots-sitemap", scenarioRobotsAndSitemap},
		{"foreign-origin", scenarioForeignOrigin},
		{"validation", scenarioValidation},
		{"honeypot", scenarioHoneypot},
		{"submit-lead", scenarioSubmitLead},
	}

	// Filter by name if argument provided
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "PASS"
		if t.failed > 0 {
			status = "FAIL"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\nSOME TESTS FAILED")
		os.Exit(1)
	}
	fmt.Println("\nALL TESTS PASSED")
}
