package dart

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"dart_deepsearch/pkg/core/fault"
)

// AttachmentMode selects what ListAttachments returns.
type AttachmentMode string

const (
	// AttachmentModeList returns only the archive inventory.
	AttachmentModeList AttachmentMode = "list"
	// AttachmentModeDocs returns document parts (XML/HTML) with content.
	AttachmentModeDocs AttachmentMode = "docs"
	// AttachmentModeFiles returns every part including binary ones.
	AttachmentModeFiles AttachmentMode = "files"
)

// Attachment is one part of a filing archive, optionally with its
// decoded text content.
type Attachment struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Content string `json:"content,omitempty"`
}

// DocumentBody downloads the original filing archive and returns its
// document text. With includeAll false only the main document (the
// largest XML/HTML part) is returned; with includeAll true every text
// part is concatenated in size order.
func (c *Client) DocumentBody(ctx context.Context, rceptNo string, includeAll bool) (string, error) {
	raw, err := c.Document(ctx, rceptNo)
	if err != nil {
		return "", err
	}

	parts, err := extractZipTexts(raw)
	if err != nil {
		return "", fault.Wrap(fault.UpstreamUnavailable, err, "failed to read filing archive %s", rceptNo)
	}
	if len(parts) == 0 {
		return "", fault.New(fault.UpstreamEmpty, "filing archive %s contains no document parts", rceptNo)
	}

	if !includeAll {
		return decodeFilingText(parts[0].body), nil
	}

	var sb strings.Builder
	for i, part := range parts {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(decodeFilingText(part.body))
	}
	return sb.String(), nil
}

// ListAttachments inventories a filing archive. titleFilter keeps only
// parts whose name contains the given substring (case-insensitive).
func (c *Client) ListAttachments(ctx context.Context, rceptNo, titleFilter string, mode AttachmentMode) ([]Attachment, error) {
	switch mode {
	case AttachmentModeList, AttachmentModeDocs, AttachmentModeFiles, "":
	default:
		return nil, fault.New(fault.InvalidInput, "unknown attachment mode %q", mode)
	}
	if mode == "" {
		mode = AttachmentModeList
	}

	raw, err := c.Document(ctx, rceptNo)
	if err != nil {
		return nil, err
	}

	entries, err := listZipEntries(raw)
	if err != nil {
		return nil, fault.Wrap(fault.UpstreamUnavailable, err, "failed to read filing archive %s", rceptNo)
	}

	filter := strings.ToLower(titleFilter)
	var out []Attachment
	for _, entry := range entries {
		if filter != "" && !strings.Contains(strings.ToLower(entry.Name), filter) {
			continue
		}
		att := Attachment{Name: entry.Name, Size: entry.Size}
		if mode != AttachmentModeList {
			lower := strings.ToLower(entry.Name)
			isDoc := strings.HasSuffix(lower, ".xml") || strings.HasSuffix(lower, ".html") ||
				strings.HasSuffix(lower, ".htm") || strings.HasSuffix(lower, ".xhtml")
			if isDoc || mode == AttachmentModeFiles {
				if body, err := readZipEntry(raw, entry.Name); err == nil && isDoc {
					att.Content = decodeFilingText(body)
				}
			}
		}
		out = append(out, att)
	}
	return out, nil
}

// decodeFilingText converts a filing part to UTF-8. DART archives are
// EUC-KR unless the XML prolog says otherwise.
func decodeFilingText(body []byte) string {
	head := body
	if len(head) > 256 {
		head = head[:256]
	}
	lower := strings.ToLower(string(head))
	if strings.Contains(lower, "utf-8") {
		return string(body)
	}
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), body)
	if err != nil || !bytes.Contains(decoded, []byte("<")) {
		return string(body)
	}
	return string(decoded)
}
