// Package imagelink extracts image references from image-column cells.
//
// A cell may hold several links separated by whitespace, commas, or
// newlines. Links to the known document-hosting service are rewritten to
// a direct-thumbnail form; everything else is used as-is. Non-link text
// yields no references, so the caller falls back to plain text display.
package imagelink

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/defectdesk/defectdesk-server/internal/domain"
)

const (
	// thumbnailURLFormat is the direct-thumbnail form of a Drive file link.
	thumbnailURLFormat = "https://drive.google.com/thumbnail?id=%s&sz=w400"

	// minTokenLen filters out separators and stray fragments.
	minTokenLen = 6
)

var (
	tokenSplit = regexp.MustCompile(`[,\n\s]+`)

	drivePathID  = regexp.MustCompile(`/d/(.+?)/(view|edit|usp)`)
	driveQueryID = regexp.MustCompile(`id=(.+?)(&|$)`)
)

// Extract returns the image references found in a cell value, in order.
// An empty result means the cell has no usable links.
func Extract(cellText string) []domain.ImageRef {
	var refs []domain.ImageRef
	for _, token := range tokenSplit.Split(strings.TrimSpace(cellText), -1) {
		token = strings.TrimSpace(token)
		if len(token) < minTokenLen || !strings.HasPrefix(token, "http") {
			continue
		}
		refs = append(refs, domain.ImageRef{
			Original: token,
			Display:  RewriteDriveURL(token),
		})
	}
	return refs
}

// RewriteDriveURL converts a Drive file link to its thumbnail form.
// Links to other hosts are returned unchanged.
func RewriteDriveURL(link string) string {
	if !strings.Contains(link, "drive.google.com") {
		return link
	}
	if m := drivePathID.FindStringSubmatch(link); m != nil {
		return fmt.Sprintf(thumbnailURLFormat, m[1])
	}
	if m := driveQueryID.FindStringSubmatch(link); m != nil {
		return fmt.Sprintf(thumbnailURLFormat, m[1])
	}
	return link
}
