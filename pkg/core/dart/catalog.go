package dart

// 공시유형 (pblntf_ty): first letter of every detail type code.
var DisclosureKinds = map[string]string{
	"A": "정기보고서",
	"B": "주요사항보고서",
	"C": "발행공시",
	"D": "지분공시",
	"E": "기타공시",
	"F": "외부감사 관련",
	"G": "펀드공시",
	"H": "자산유동화",
	"I": "거래소 공시",
	"J": "공정위 공시",
}

// 정기보고서 접수코드 (reprt_code).
var ReportCodes = map[string]string{
	"11011": "사업보고서",
	"11012": "반기보고서",
	"11013": "1분기보고서",
	"11014": "3분기보고서",
}

// XBRL 재무제표 구분 (sj_div).
var XBRLClassifications = map[string]string{
	"BS1":  "재무상태표",
	"IS1":  "손익계산서",
	"CIS1": "포괄손익계산서",
	"CF1":  "현금흐름표",
	"SCE1": "자본변동표",
}

// 시장 구분 (corp_cls).
var CorpClassNames = map[string]string{
	"Y": "유가증권",
	"K": "코스닥",
	"N": "코넥스",
	"E": "기타",
}

// DetailTypes maps every 공시상세유형 (pblntf_detail_ty) to its name.
var DetailTypes = map[string]string{
	"A001": "사업보고서",
	"A002": "반기보고서",
	"A003": "분기보고서",
	"A004": "등록법인결산서류",
	"A005": "소액공모법인결산서류",
	"B001": "주요사항보고서",
	"B002": "주요경영사항신고",
	"B003": "최대주주등과의거래신고",
	"C001": "증권신고(지분증권)",
	"C002": "증권신고(채무증권)",
	"C003": "증권신고(파생결합증권)",
	"C004": "증권신고(합병등)",
	"C005": "증권신고(기타)",
	"C006": "소액공모(지분증권)",
	"C007": "소액공모(채무증권)",
	"C008": "소액공모(파생결합증권)",
	"C009": "소액공모(기타)",
	"C010": "호가중개시스템을통한소액매출",
	"C011": "유동화증권등",
	"D001": "주식등의대량보유상황보고서",
	"D002": "임원ㆍ주요주주특정증권등소유상황보고서",
	"D003": "의결권대리행사권유",
	"D004": "공개매수",
	"D005": "임원ㆍ주요주주특정증권등거래계획보고서",
	"E001": "자기주식취득/처분",
	"E002": "신탁계약체결/해지",
	"E003": "합병등종료보고서",
	"E004": "주식매수선택권부여에관한신고",
	"E005": "사외이사에관한신고",
	"E006": "주주총회소집보고서",
	"E007": "시장조성/안정조작",
	"E008": "합병등신고서",
	"E009": "금융위등록/취소",
	"E010": "이중상환청구권부채권(커버드본드)",
	"F001": "감사보고서",
	"F002": "연결감사보고서",
	"F003": "결합감사보고서",
	"F004": "회계법인사업보고서",
	"F005": "감사전재무제표미제출신고서",
	"G001": "증권신고(집합투자증권-신탁형)",
	"G002": "증권신고(집합투자증권-회사형)",
	"G003": "증권신고(집합투자증권-합병)",
	"H001": "자산유동화계획/양도등록",
	"H002": "사업보고서(자산유동화)",
	"H003": "반기보고서(자산유동화)",
	"H004": "분기보고서(자산유동화)",
	"H005": "중요사항발생등보고",
	"H006": "자산유동화관련중요사항발생등보고",
	"I001": "수시공시",
	"I002": "공정공시",
	"I003": "시장조치/안내",
	"I004": "지분공시",
	"I005": "증권투자회사",
	"I006": "채권공시",
	"J001": "대규모내부거래관련",
	"J002": "대규모내부거래관련(구)",
	"J004": "기업집단현황공시",
	"J005": "비상장회사중요사항공시",
	"J006": "기타공정위공시",
	"J008": "대규모내부거래관련(공익법인용)",
	"J009": "하도급대금결제조건공시",
}

// DetailTypeName resolves a detail type code to its name, returning the
// code itself when it is not in the catalog.
func DetailTypeName(code string) string {
	if name, ok := DetailTypes[code]; ok {
		return name
	}
	return code
}

// MajorEventTypes lists the 주요사항보고서 event categories that have a
// dedicated detail endpoint.
var MajorEventTypes = []string{
	"부도발생", "영업정지", "회생절차", "해산사유", "유상증자", "무상증자", "유무상증자",
	"감자", "관리절차개시", "소송", "해외상장결정", "해외상장폐지결정", "해외상장",
	"해외상장폐지", "전환사채발행", "신주인수권부사채발행", "교환사채발행", "관리절차중단",
	"조건부자본증권발행", "자산양수도", "타법인증권양도", "유형자산양도", "유형자산양수",
	"타법인증권양수", "영업양도", "영업양수", "자기주식취득신탁계약해지",
	"자기주식취득신탁계약체결", "자기주식처분", "자기주식취득", "주식교환",
	"회사분할합병", "회사분할", "회사합병", "사채권양수", "사채권양도결정",
}

// 주요사항보고서 event → detail endpoint.
var MajorEventEndpoints = map[string]string{
	"부도발생":         "dfOcr",
	"영업정지":         "bsnSp",
	"회생절차":         "ctrcvsBgrq",
	"해산사유":         "dsRsOcr",
	"유상증자":         "piicDecsn",
	"무상증자":         "fricDecsn",
	"유무상증자":        "pifricDecsn",
	"감자":           "crDecsn",
	"관리절차개시":       "bnkMngtPcbg",
	"소송":           "lwstLg",
	"해외상장결정":       "ovLstDecsn",
	"해외상장폐지결정":     "ovDlstDecsn",
	"해외상장":         "ovLst",
	"해외상장폐지":       "ovDlst",
	"전환사채발행":       "cvbdIsDecsn",
	"신주인수권부사채발행":   "bdwtIsDecsn",
	"교환사채발행":       "exbdIsDecsn",
	"관리절차중단":       "bnkMngtPcsp",
	"조건부자본증권발행":    "wdCocobdIsDecsn",
	"자산양수도":        "astInhtrfEtcPtbkOpt",
	"타법인증권양도":      "otcprStkInvscrTrfDecsn",
	"유형자산양도":       "tgastTrfDecsn",
	"유형자산양수":       "tgastInhDecsn",
	"타법인증권양수":      "otcprStkInvscrInhDecsn",
	"영업양도":         "bsnTrfDecsn",
	"영업양수":         "bsnInhDecsn",
	"자기주식취득신탁계약해지": "tsstkAqTrctrCcDecsn",
	"자기주식취득신탁계약체결": "tsstkAqTrctrCnsDecsn",
	"자기주식처분":       "tsstkDpDecsn",
	"자기주식취득":       "tsstkAqDecsn",
	"주식교환":         "stkExtrDecsn",
	"회사분할합병":       "cmpDvmgDecsn",
	"회사분할":         "cmpDvDecsn",
	"회사합병":         "cmpMgDecsn",
	"사채권양수":        "stkrtbdInhDecsn",
	"사채권양도결정":      "stkrtbdTrfDecsn",
}

// SecuritiesTypes lists 증권신고서 registration categories.
var SecuritiesTypes = []string{
	"주식의포괄적교환이전", "합병", "증권예탁증권", "채무증권", "지분증권", "분할",
}

// 증권신고서 type → detail endpoint.
var SecuritiesEndpoints = map[string]string{
	"지분증권":       "estkRs",
	"채무증권":       "bdRs",
	"증권예탁증권":     "stkdpRs",
	"합병":         "mgRs",
	"주식의포괄적교환이전": "extrRs",
	"분할":         "dvRs",
}

// BusinessReportTypes lists the 사업보고서 주요정보 sections DART exposes
// through dedicated endpoints.
var BusinessReportTypes = []string{
	"조건부자본증권미상환", "미등기임원보수", "회사채미상환", "단기사채미상환", "기업어음미상환",
	"채무증권발행", "사모자금사용", "공모자금사용", "임원전체보수승인", "임원전체보수유형",
	"주식총수", "회계감사", "감사용역", "회계감사용역계약", "사외이사", "신종자본증권미상환",
	"증자", "배당", "자기주식", "최대주주", "최대주주변동", "소액주주", "임원", "직원",
	"임원개인보수", "임원전체보수", "개인별보수", "타법인출자",
}

// 사업보고서 주요정보 section → detail endpoint.
var BusinessReportEndpoints = map[string]string{
	"조건부자본증권미상환": "cndlCaplScritsNrdmpBlce",
	"미등기임원보수":    "unrstExctvMendngSttus",
	"회사채미상환":     "cprndNrdmpBlce",
	"단기사채미상환":    "srtpdPsndbtNrdmpBlce",
	"기업어음미상환":    "entrprsBilScritsNrdmpBlce",
	"채무증권발행":     "detScritsIsuAcmslt",
	"사모자금사용":     "prvsrpCptalUseDtls",
	"공모자금사용":     "pssrpCptalUseDtls",
	"임원전체보수승인":   "drctrAdtAllMendngSttusGmtsckConfmAmount",
	"임원전체보수유형":   "drctrAdtAllMendngSttusMendngPymntamtTyCl",
	"주식총수":       "stockTotqySttus",
	"회계감사":       "accnutAdtorNmNdAdtOpinion",
	"감사용역":       "adtServcCnclsSttus",
	"회계감사용역계약":   "accnutAdtorNonAdtServcCnclsSttus",
	"사외이사":       "outcmpnyDrctrNdChangeSttus",
	"신종자본증권미상환":  "newCaplScritsNrdmpBlce",
	"증자":         "irdsSttus",
	"배당":         "alotMatter",
	"자기주식":       "tesstkAcqsDspsSttus",
	"최대주주":       "hyslrSttus",
	"최대주주변동":     "hyslrChgSttus",
	"소액주주":       "mrhlSttus",
	"임원":         "exctvSttus",
	"직원":         "empSttus",
	"임원개인보수":     "hmvAuditIndvdlBySttus",
	"임원전체보수":     "hmvAuditAllSttus",
	"개인별보수":      "indvdlByPay",
	"타법인출자":      "otrCprInvstmntSttus",
}

// 지분공시 endpoints.
const (
	EndpointMajorShareholders = "majorstock"
	EndpointExecutiveHoldings = "elestock"
)

// 재무정보 endpoints.
const (
	EndpointFinancialsAll = "fnlttSinglAcntAll"
	EndpointFinancials    = "fnlttSinglAcnt"
	EndpointXBRLTaxonomy  = "xbrlTaxonomy"
)
