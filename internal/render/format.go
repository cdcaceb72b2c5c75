package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/restan/tethbox/internal/tethbox"
	"golang.org/x/net/html"
)

// LinkRef represents a collected hyperlink reference
type LinkRef struct {
	Index int
	URL   string
	Text  string
}

// FormatOptions controls terminal formatting behavior
type FormatOptions struct {
	WrapWidth int
}

var plainURLRe = regexp.MustCompile(`(?i)\bhttps?://[\w\-\._~:/%\?#\[\]@!$&'()*+,;=]+`)

// FormatMessageForTerminal builds terminal-friendly text with [BODY], [ATTACHMENTS] and [LINKS]
// sections. Messages without detail render an empty body.
func FormatMessageForTerminal(msg tethbox.Message, opts FormatOptions) string {
	body, links := bodyAndLinks(msg)
	if opts.WrapWidth > 0 {
		body = WrapText(body, opts.WrapWidth)
	}

	out := &strings.Builder{}
	out.WriteString("[BODY]\n")
	if strings.TrimSpace(body) == "" {
		out.WriteString("(no content)")
	} else {
		out.WriteString(body)
	}
	out.WriteString("\n\n")

	out.WriteString("[ATTACHMENTS]\n")
	if len(msg.Attachments) == 0 {
		out.WriteString("None\n\n")
	} else {
		for i, a := range msg.Attachments {
			name := a.Filename
			if name == "" {
				name = "(attachment)"
			}
			fmt.Fprintf(out, "%d. %s (%s)\n", i+1, name, ReadableFileSize(a.Size))
		}
		out.WriteString("\n")
	}

	out.WriteString("[LINKS]\n")
	if len(links) == 0 {
		out.WriteString("None\n")
	} else {
		for _, lr := range links {
			fmt.Fprintf(out, "(%d) %s\n", lr.Index, lr.URL)
		}
	}

	return out.String()
}

// PlainText renders the message body alone, wrapped at width when width > 0
func PlainText(msg tethbox.Message, width int) string {
	body, _ := bodyAndLinks(msg)
	if width > 0 {
		body = WrapText(body, width)
	}
	return body
}

// ExtractLinks returns the links of a message numbered as FormatMessageForTerminal numbers them
func ExtractLinks(msg tethbox.Message) []LinkRef {
	_, links := bodyAndLinks(msg)
	return links
}

func bodyAndLinks(msg tethbox.Message) (string, []LinkRef) {
	var body string
	var links []LinkRef
	if strings.TrimSpace(msg.HTML) != "" {
		if b, l, err := renderHTMLToText(msg.HTML); err == nil {
			body, links = b, l
		}
	}
	body = normalizeNewlines(body)

	// anchors win; bare URLs are only numbered when the HTML had none
	if len(links) == 0 {
		links, body = detectPlainTextLinks(body)
	}
	return body, links
}

// detectPlainTextLinks finds URLs in plain text and replaces them with [n] references
func detectPlainTextLinks(input string) ([]LinkRef, string) {
	idx := 0
	var links []LinkRef
	replaced := plainURLRe.ReplaceAllStringFunc(input, func(m string) string {
		idx++
		links = append(links, LinkRef{Index: idx, URL: m, Text: m})
		return fmt.Sprintf("[%d]", idx)
	})
	return links, replaced
}

// renderHTMLToText parses HTML and emits text, numbering links as [n] references
func renderHTMLToText(htmlStr string) (string, []LinkRef, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var links []LinkRef
	quoteDepth := 0

	var visit func(n *html.Node)
	walkChildren := func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := sanitizeForTerminal(n.Data)
			if strings.TrimSpace(text) == "" {
				if text != "" && b.Len() > 0 {
					b.WriteByte(' ')
				}
				return
			}
			if quoteDepth > 0 {
				text = strings.Repeat("> ", quoteDepth) + strings.TrimLeftFunc(text, unicode.IsSpace)
			}
			b.WriteString(text)
			return
		case html.ElementNode:
		default:
			walkChildren(n)
			return
		}

		switch strings.ToLower(n.Data) {
		case "head", "style", "script", "title", "meta", "link":
			return
		case "br":
			b.WriteByte('\n')
		case "hr":
			b.WriteString("\n-----\n")
		case "p", "h1", "h2", "h3", "h4", "h5", "h6":
			walkChildren(n)
			b.WriteString("\n\n")
		case "div", "section", "article", "tr":
			walkChildren(n)
			b.WriteByte('\n')
		case "td", "th":
			walkChildren(n)
			b.WriteString(" | ")
		case "li":
			b.WriteString("- ")
			walkChildren(n)
			b.WriteByte('\n')
		case "blockquote":
			quoteDepth++
			walkChildren(n)
			quoteDepth--
			b.WriteByte('\n')
		case "a":
			href := attr(n, "href")
			var inner strings.Builder
			collectText(&inner, n)
			label := strings.TrimSpace(inner.String())
			if label == "" {
				label = attr(n, "title")
			}
			if href == "" || (strings.HasPrefix(strings.ToLower(href), "mailto:") && label == href[len("mailto:"):]) {
				b.WriteString(label)
				return
			}
			if label == "" {
				label = href
			}
			links = append(links, LinkRef{Index: len(links) + 1, URL: href, Text: label})
			fmt.Fprintf(&b, "%s [%d]", label, len(links))
		case "img":
			if alt := attr(n, "alt"); alt != "" {
				fmt.Fprintf(&b, "[image: %s]", alt)
			}
		default:
			walkChildren(n)
		}
	}
	visit(doc)

	lines := strings.Split(b.String(), "\n")
	for i, ln := range lines {
		ln = strings.TrimLeft(strings.TrimRight(ln, " |"), " ")
		lines[i] = strings.TrimRightFunc(ln, unicode.IsSpace)
	}
	return strings.TrimSpace(normalizeNewlines(strings.Join(lines, "\n"))), links, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func collectText(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(sanitizeForTerminal(c.Data))
		case html.ElementNode:
			if strings.EqualFold(c.Data, "img") {
				b.WriteString(attr(c, "alt"))
				continue
			}
			collectText(b, c)
		}
	}
}

// sanitizeForTerminal replaces rich-text glyphs that render as tofu with ASCII equivalents
func sanitizeForTerminal(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\u00a0', '\u202f', '\t':
			b.WriteRune(' ')
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u2060', '\u00ad', '\u034f':
		case '\u2013', '\u2014':
			b.WriteRune('-')
		case '\u2018', '\u2019':
			b.WriteRune('\'')
		case '\u201c', '\u201d':
			b.WriteRune('"')
		case '\u2026':
			b.WriteString("...")
		case '\u2022', '\u25cf', '\u25e6':
			b.WriteRune('-')
		case '\n':
			b.WriteRune(' ')
		default:
			if r >= '\u2000' && r <= '\u200a' {
				b.WriteRune(' ')
				continue
			}
			if unicode.IsControl(r) || unicode.Is(unicode.So, r) {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WrapText wraps text to width by display cells. Quote prefixes ("> ") are
// repeated on continuation lines and URLs are never split.
func WrapText(input string, width int) string {
	if width <= 0 {
		return input
	}
	lines := strings.Split(normalizeNewlines(input), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		prefix := ""
		rest := line
		for strings.HasPrefix(rest, "> ") {
			prefix += "> "
			rest = strings.TrimPrefix(rest, "> ")
		}
		words := strings.Fields(rest)
		if len(words) == 0 {
			out = append(out, strings.TrimRight(prefix, " "))
			continue
		}

		cur := prefix
		for _, w := range words {
			switch {
			case cur == prefix:
				cur += w
			case runewidth.StringWidth(cur)+1+runewidth.StringWidth(w) <= width:
				cur += " " + w
			default:
				out = append(out, cur)
				cur = prefix + w
			}
		}
		out = append(out, cur)
	}
	return strings.Join(out, "\n")
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	// collapse 3+ blank lines into 2
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
