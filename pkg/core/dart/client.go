package dart

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dart_deepsearch/pkg/core/fault"
	"dart_deepsearch/pkg/core/ratelimit"
)

const (
	// DefaultBaseURL is the DART OpenAPI root.
	DefaultBaseURL = "https://opendart.fss.or.kr/api"

	// viewerURLFormat renders a filing in the public DART viewer.
	viewerURLFormat = "https://dart.fss.or.kr/dsaf001/main.do?rcpNo=%s"
)

// ViewerURL returns the public viewer address for a receipt number.
func ViewerURL(rceptNo string) string {
	return fmt.Sprintf(viewerURLFormat, rceptNo)
}

// Client is the DART OpenAPI gateway. Every call goes through the shared
// rate limiter before it reaches the network. The client performs no
// retries: failures surface to the caller classified by kind.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	docClient  *http.Client
	limits     *ratelimit.Manager
	mappings   *FieldMappings
}

func NewClient(apiKey, baseURL string, limits *ratelimit.Manager) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if limits == nil {
		limits = ratelimit.NewManager()
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		// Original document archives are large; give them more room.
		docClient: &http.Client{Timeout: 60 * time.Second},
		limits:    limits,
		mappings:  DefaultFieldMappings(),
	}
}

// SetFieldMappings replaces the display mapping applied to detail
// endpoint rows.
func (c *Client) SetFieldMappings(m *FieldMappings) {
	if m != nil {
		c.mappings = m
	}
}

// normalizeDate accepts YYYYMMDD or YYYY-MM-DD and returns YYYYMMDD.
func normalizeDate(s string) (string, error) {
	compact := strings.ReplaceAll(s, "-", "")
	if len(compact) != 8 {
		return "", fault.New(fault.InvalidInput, "invalid date %q: want YYYYMMDD or YYYY-MM-DD", s)
	}
	t, err := time.Parse("20060102", compact)
	if err != nil {
		return "", fault.New(fault.InvalidInput, "invalid date %q: %v", s, err)
	}
	if year := t.Year(); year < 1990 || year > time.Now().Year()+1 {
		return "", fault.New(fault.InvalidInput, "date %q out of range", s)
	}
	return compact, nil
}

// statusError maps a DART envelope to an error kind. "013" (조회된 데이타가
// 없습니다) is reported as UpstreamEmpty so callers can treat it as an
// empty result rather than a failure.
func statusError(env apiEnvelope) error {
	switch env.Status {
	case "000":
		return nil
	case "013":
		return fault.New(fault.UpstreamEmpty, "dart status %s: %s", env.Status, env.Message)
	case "100", "101":
		return fault.New(fault.InvalidInput, "dart status %s: %s", env.Status, env.Message)
	default:
		return fault.New(fault.UpstreamUnavailable, "dart status %s: %s", env.Status, env.Message)
	}
}

// getJSON performs one rate-limited GET against a JSON endpoint and
// decodes the body into out after checking the status envelope.
func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	raw, err := c.get(ctx, c.httpClient, endpoint, query)
	if err != nil {
		return err
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fault.Wrap(fault.UpstreamUnavailable, err, "failed to decode %s response", endpoint)
	}
	if err := statusError(env); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fault.Wrap(fault.UpstreamUnavailable, err, "failed to decode %s response", endpoint)
	}
	return nil
}

func (c *Client) get(ctx context.Context, client *http.Client, endpoint string, query url.Values) ([]byte, error) {
	if err := c.limits.Acquire(ctx, ratelimit.ServiceDartAPI); err != nil {
		return nil, fault.Wrap(fault.Cancelled, err, "rate limit acquire interrupted")
	}
	defer c.limits.Release(ratelimit.ServiceDartAPI)

	query.Set("crtfc_key", c.apiKey)
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Internal, err, "failed to build %s request", endpoint)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fault.Wrap(fault.Cancelled, ctx.Err(), "request cancelled")
		}
		return nil, fault.Wrap(fault.UpstreamUnavailable, err, "dart request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.New(fault.UpstreamUnavailable, "dart api returned status %d for %s", resp.StatusCode, endpoint)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fault.Wrap(fault.UpstreamUnavailable, err, "failed to read %s response", endpoint)
	}
	return raw, nil
}

// Search runs one list.json call. Pagination is the caller's concern;
// this fetches exactly the requested page.
func (c *Client) Search(ctx context.Context, p SearchParams) (*SearchPage, error) {
	query := url.Values{}
	if p.CorpCode != "" {
		query.Set("corp_code", p.CorpCode)
	}
	if p.BeginDate != "" {
		bgn, err := normalizeDate(p.BeginDate)
		if err != nil {
			return nil, err
		}
		query.Set("bgn_de", bgn)
	}
	if p.EndDate != "" {
		end, err := normalizeDate(p.EndDate)
		if err != nil {
			return nil, err
		}
		query.Set("end_de", end)
	}
	if p.Kind != "" {
		query.Set("pblntf_ty", p.Kind)
	}
	if p.KindDetail != "" {
		query.Set("pblntf_detail_ty", p.KindDetail)
	}
	if p.LastReportOnly {
		query.Set("last_reprt_at", "Y")
	}
	pageNo := p.PageNo
	if pageNo < 1 {
		pageNo = 1
	}
	pageCount := p.PageCount
	if pageCount < 1 {
		pageCount = 100
	}
	query.Set("page_no", fmt.Sprintf("%d", pageNo))
	query.Set("page_count", fmt.Sprintf("%d", pageCount))

	var page SearchPage
	if err := c.getJSON(ctx, "list.json", query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Company fetches the corporate profile for a corp code.
func (c *Client) Company(ctx context.Context, corpCode string) (*CompanyProfile, error) {
	query := url.Values{}
	query.Set("corp_code", corpCode)

	var profile CompanyProfile
	if err := c.getJSON(ctx, "company.json", query, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// corpCodeFile is the CORPCODE.xml document inside the corpCode.xml ZIP.
type corpCodeFile struct {
	XMLName xml.Name   `xml:"result"`
	List    []CorpCode `xml:"list"`
}

// CorpCodes downloads and parses the full company master registry.
// The endpoint returns a ZIP archive containing CORPCODE.xml.
func (c *Client) CorpCodes(ctx context.Context) ([]CorpCode, error) {
	raw, err := c.get(ctx, c.docClient, "corpCode.xml", url.Values{})
	if err != nil {
		return nil, err
	}
	if err := archiveError(raw); err != nil {
		return nil, err
	}

	xmlBody, err := readZipEntry(raw, "CORPCODE.xml")
	if err != nil {
		return nil, fault.Wrap(fault.UpstreamUnavailable, err, "failed to read corp code archive")
	}

	var file corpCodeFile
	if err := xml.Unmarshal(xmlBody, &file); err != nil {
		return nil, fault.Wrap(fault.UpstreamUnavailable, err, "failed to parse CORPCODE.xml")
	}
	return file.List, nil
}

// Document downloads the original filing archive (document.xml) for a
// receipt number and returns the raw ZIP bytes.
func (c *Client) Document(ctx context.Context, rceptNo string) ([]byte, error) {
	if rceptNo == "" {
		return nil, fault.New(fault.InvalidInput, "receipt number is required")
	}
	query := url.Values{}
	query.Set("rcept_no", rceptNo)

	raw, err := c.get(ctx, c.docClient, "document.xml", query)
	if err != nil {
		return nil, err
	}
	if err := archiveError(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// archiveError inspects a binary endpoint response: success is a ZIP
// (PK signature), failure is a small XML body carrying err_code/err_msg
// or a JSON envelope.
func archiveError(raw []byte) error {
	if len(raw) >= 2 && raw[0] == 'P' && raw[1] == 'K' {
		return nil
	}

	var xmlErr struct {
		Status  string `xml:"err_code"`
		Message string `xml:"err_msg"`
	}
	if err := xml.Unmarshal(raw, &xmlErr); err == nil && xmlErr.Status != "" {
		return statusError(apiEnvelope{Status: xmlErr.Status, Message: xmlErr.Message})
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Status != "" {
		return statusError(env)
	}
	return fault.New(fault.UpstreamUnavailable, "unexpected non-archive response (%d bytes)", len(raw))
}

// Report runs one generic detail endpoint ({endpoint}.json) and returns
// its rows with display mappings applied.
func (c *Client) Report(ctx context.Context, endpoint string, params map[string]string) ([]map[string]interface{}, error) {
	query := url.Values{}
	for key, value := range params {
		if value != "" {
			query.Set(key, value)
		}
	}

	var rows reportRows
	if err := c.getJSON(ctx, endpoint+".json", query, &rows); err != nil {
		return nil, err
	}
	return c.mappings.ApplyAll(rows.List), nil
}

// MajorEvents fetches 주요사항보고서 detail rows for one event type over a
// calendar year.
func (c *Client) MajorEvents(ctx context.Context, corpCode, eventType string, year int) ([]map[string]interface{}, error) {
	endpoint, ok := MajorEventEndpoints[eventType]
	if !ok {
		return nil, fault.New(fault.InvalidInput, "unknown major event type %q", eventType)
	}
	return c.Report(ctx, endpoint, map[string]string{
		"corp_code": corpCode,
		"bgn_de":    fmt.Sprintf("%d0101", year),
		"end_de":    fmt.Sprintf("%d1231", year),
	})
}

// SecuritiesRegistration fetches 증권신고서 detail rows for one
// registration type over a calendar year.
func (c *Client) SecuritiesRegistration(ctx context.Context, corpCode, secType string, year int) ([]map[string]interface{}, error) {
	endpoint, ok := SecuritiesEndpoints[secType]
	if !ok {
		return nil, fault.New(fault.InvalidInput, "unknown securities type %q", secType)
	}
	return c.Report(ctx, endpoint, map[string]string{
		"corp_code": corpCode,
		"bgn_de":    fmt.Sprintf("%d0101", year),
		"end_de":    fmt.Sprintf("%d1231", year),
	})
}

// BusinessReport fetches one 사업보고서 주요정보 section for a business year.
func (c *Client) BusinessReport(ctx context.Context, corpCode, reportType string, year int, reportCode string) ([]map[string]interface{}, error) {
	endpoint, ok := BusinessReportEndpoints[reportType]
	if !ok {
		return nil, fault.New(fault.InvalidInput, "unknown business report type %q", reportType)
	}
	if reportCode == "" {
		reportCode = "11011"
	}
	return c.Report(ctx, endpoint, map[string]string{
		"corp_code":  corpCode,
		"bsns_year":  fmt.Sprintf("%d", year),
		"reprt_code": reportCode,
	})
}

// MajorShareholders fetches 대량보유 상황보고 rows.
func (c *Client) MajorShareholders(ctx context.Context, corpCode string) ([]map[string]interface{}, error) {
	return c.Report(ctx, EndpointMajorShareholders, map[string]string{"corp_code": corpCode})
}

// ExecutiveHoldings fetches 임원ㆍ주요주주 소유보고 rows.
func (c *Client) ExecutiveHoldings(ctx context.Context, corpCode string) ([]map[string]interface{}, error) {
	return c.Report(ctx, EndpointExecutiveHoldings, map[string]string{"corp_code": corpCode})
}

// FinancialStatements fetches single-company financials for a business
// year. comprehensive selects the full account set over the main one.
func (c *Client) FinancialStatements(ctx context.Context, corpCode string, year int, reportCode string, comprehensive bool) ([]map[string]interface{}, error) {
	endpoint := EndpointFinancials
	if comprehensive {
		endpoint = EndpointFinancialsAll
	}
	if reportCode == "" {
		reportCode = "11011"
	}
	params := map[string]string{
		"corp_code":  corpCode,
		"bsns_year":  fmt.Sprintf("%d", year),
		"reprt_code": reportCode,
	}
	if comprehensive {
		params["fs_div"] = "CFS"
	}
	return c.Report(ctx, endpoint, params)
}

// XBRLTaxonomy fetches the account list for one 재무제표 classification.
func (c *Client) XBRLTaxonomy(ctx context.Context, classification string) ([]map[string]interface{}, error) {
	if _, ok := XBRLClassifications[classification]; !ok {
		return nil, fault.New(fault.InvalidInput, "unknown xbrl classification %q", classification)
	}
	return c.Report(ctx, EndpointXBRLTaxonomy, map[string]string{"sj_div": classification})
}
