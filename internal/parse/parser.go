// Package parse extracts the pending-game snapshot from the turn-status page.
package parse

import (
	"bytes"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/awbwtools/turn-sentinel/internal/checker"
)

// anchorText is the structural anchor that marks the expected page. Its
// absence means the page layout is unrecognized, not that there are no
// pending games.
const anchorText = "Your Turn Games"

var (
	turnCountRe  = regexp.MustCompile(`Your Turn Games\s*\((\d+)\)`)
	startCountRe = regexp.MustCompile(`Your Games Waiting to Start\s*\((\d+)\)`)
	gameIDRe     = regexp.MustCompile(`games_id=(\d+)`)
)

// Parser is a pure function over page content. It holds no state and is
// safe for concurrent use.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

// Extract returns the snapshot of pending games. An authenticated page with
// no games yields a valid empty snapshot; a page without the structural
// anchor fails with checker.ErrParseFailed.
func (p *Parser) Extract(body []byte) (checker.Snapshot, error) {
	if !bytes.Contains(body, []byte(anchorText)) {
		return checker.Snapshot{}, fmt.Errorf("%w: missing %q anchor", checker.ErrParseFailed, anchorText)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return checker.Snapshot{}, fmt.Errorf("%w: parse document: %v", checker.ErrParseFailed, err)
	}

	var ids []string
	doc.Find(`a[href*="game.php?games_id="]`).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		if m := gameIDRe.FindStringSubmatch(href); m != nil {
			ids = append(ids, m[1])
		}
	})
	checker.SortGameIDs(ids)
	ids = slices.Compact(ids)

	return checker.Snapshot{
		GameIDs: ids,
		Count:   captureCount(body, turnCountRe) + captureCount(body, startCountRe),
	}, nil
}

func captureCount(body []byte, re *regexp.Regexp) int {
	m := re.FindSubmatch(body)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}
	return n
}
