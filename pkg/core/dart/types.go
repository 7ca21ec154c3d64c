package dart

import "encoding/json"

// apiEnvelope is the status header every DART JSON response carries.
type apiEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Disclosure is one row of a list.json search result. Fields DART adds
// to the row that this struct does not name survive in Extra, so they
// round-trip through the cache and reach API consumers.
type Disclosure struct {
	CorpCode    string                 `json:"corp_code"`
	CorpName    string                 `json:"corp_name"`
	StockCode   string                 `json:"stock_code"`
	CorpClass   string                 `json:"corp_cls"`
	ReportName  string                 `json:"report_nm"`
	ReceiptNo   string                 `json:"rcept_no"`
	Filer       string                 `json:"flr_nm"`
	ReceiptDate string                 `json:"rcept_dt"`
	Remark      string                 `json:"rm"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// disclosureFields are the row keys bound to named struct fields.
var disclosureFields = map[string]bool{
	"corp_code": true, "corp_name": true, "stock_code": true,
	"corp_cls": true, "report_nm": true, "rcept_no": true,
	"flr_nm": true, "rcept_dt": true, "rm": true, "extra": true,
}

// UnmarshalJSON decodes the named fields as usual and collects every
// unrecognized key into Extra.
func (d *Disclosure) UnmarshalJSON(data []byte) error {
	type plain Disclosure
	var row plain
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if disclosureFields[key] {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(value, &v); err != nil {
			continue
		}
		if row.Extra == nil {
			row.Extra = map[string]interface{}{}
		}
		row.Extra[key] = v
	}

	*d = Disclosure(row)
	return nil
}

// SearchPage is one page of list.json results.
type SearchPage struct {
	apiEnvelope
	PageNo     int          `json:"page_no"`
	PageCount  int          `json:"page_count"`
	TotalCount int          `json:"total_count"`
	TotalPage  int          `json:"total_page"`
	List       []Disclosure `json:"list"`
}

// SearchParams describes one list.json call. Dates are accepted as
// YYYYMMDD or YYYY-MM-DD and normalized before the request.
type SearchParams struct {
	CorpCode       string `json:"corp_code,omitempty"`
	BeginDate      string `json:"bgn_de,omitempty"`
	EndDate        string `json:"end_de,omitempty"`
	Kind           string `json:"pblntf_ty,omitempty"`
	KindDetail     string `json:"pblntf_detail_ty,omitempty"`
	LastReportOnly bool   `json:"last_reprt_at,omitempty"`
	PageNo         int    `json:"page_no,omitempty"`
	PageCount      int    `json:"page_count,omitempty"`
}

// CompanyProfile is the company.json response.
type CompanyProfile struct {
	apiEnvelope
	CorpCode      string `json:"corp_code"`
	CorpName      string `json:"corp_name"`
	CorpNameEng   string `json:"corp_name_eng"`
	StockName     string `json:"stock_name"`
	StockCode     string `json:"stock_code"`
	CEOName       string `json:"ceo_nm"`
	CorpClass     string `json:"corp_cls"`
	JuridicalNo   string `json:"jurir_no"`
	BusinessNo    string `json:"bizr_no"`
	Address       string `json:"adres"`
	HomepageURL   string `json:"hm_url"`
	IRURL         string `json:"ir_url"`
	PhoneNo       string `json:"phn_no"`
	FaxNo         string `json:"fax_no"`
	IndustryCode  string `json:"induty_code"`
	EstablishDate string `json:"est_dt"`
	AccountMonth  string `json:"acc_mt"`
}

// CorpCode is one entry of the corpCode.xml master registry.
type CorpCode struct {
	Code       string `xml:"corp_code" json:"corp_code"`
	Name       string `xml:"corp_name" json:"corp_name"`
	EngName    string `xml:"corp_eng_name" json:"corp_eng_name,omitempty"`
	StockCode  string `xml:"stock_code" json:"stock_code"`
	ModifyDate string `xml:"modify_date" json:"modify_date"`
}

// reportRows is the generic envelope for the detail endpoints
// (주요사항보고서, 증권신고서, 사업보고서 주요정보, 지분공시, 재무).
type reportRows struct {
	apiEnvelope
	List []map[string]interface{} `json:"list"`
}
