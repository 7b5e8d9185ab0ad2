package content

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
)

// ImageMirror copies one remote asset into local storage.
type ImageMirror interface {
	Ensure(ctx context.Context, remoteURL string) (string, bool)
}

// Config names the legacy WordPress host whose links get rewritten and the
// canonical local paths they are rewritten to.
type Config struct {
	LegacyHost  string // e.g. "navigator-business-optimizer.com"
	ArticlePath string // e.g. "/en/blog/article"
	AssetPath   string // e.g. "/blog"
}

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Rewriter rewrites legacy link structures and strips page-builder markup
// from post bodies, and mirrors the images those bodies reference.
type Rewriter struct {
	rules    []rule
	leftover *strings.Replacer
	uploads  *regexp.Regexp
	mirror   ImageMirror
	logger   *slog.Logger
}

func NewRewriter(cfg Config, mirror ImageMirror, logger *slog.Logger) *Rewriter {
	host := regexp.QuoteMeta(cfg.LegacyHost)

	// Order is part of the contract: link rules must run before the
	// class/id stripping rules, and each rule sees the previous rule's
	// output.
	rules := []rule{
		{
			re:   regexp.MustCompile(`(?i)https?://` + host + `/\d{4}/\d{2}/([^"|]*?)/`),
			repl: cfg.ArticlePath + "/$1",
		},
		{
			re:   regexp.MustCompile(`(?i)(\(?)/\d{4}/\d{2}/([^"|]*?)/`),
			repl: "${1}" + cfg.ArticlePath + "/$2",
		},
		{
			re:   regexp.MustCompile(`(?i)https?://` + host + `/wp-content/uploads/\d{4}/\d{2}/`),
			repl: cfg.AssetPath + "/",
		},
		{
			re:   regexp.MustCompile(`(?i)images/(.*?)\)`),
			repl: cfg.AssetPath + "/$1)",
		},
		{
			re:   regexp.MustCompile(`(?i).\[/?vc(.*?)\]`),
			repl: " ",
		},
		{
			re:   regexp.MustCompile(`(?i).\[blockquote(.*?)\]`),
			repl: "> ",
		},
		{
			re:   regexp.MustCompile(`(?i) class="wp-block[^"]*"`),
			repl: "",
		},
		{
			re:   regexp.MustCompile(`(?i) class="wp-image[^"]*"`),
			repl: "",
		},
		{
			re:   regexp.MustCompile(`(?i) id="block-[^"]*"`),
			repl: "",
		},
	}

	leftover := strings.NewReplacer(
		"[/blockquote]", "",
		`[dropcap background="" color="" circle="0" size="1"]`, "",
		"[/dropcap]", "",
		"[idea]", "",
		"[/idea]", "",
		"xE2x80x8B", "",
	)

	uploads := regexp.MustCompile(
		`(?i)https?://` + host + `/wp-content/uploads/\d{4}/\d{2}/[^"\s]*`,
	)

	return &Rewriter{
		rules:    rules,
		leftover: leftover,
		uploads:  uploads,
		mirror:   mirror,
		logger:   logger.With("component", "content"),
	}
}

// Rewrite applies the ordered substitution rules in a single left-to-right
// pass and then removes fixed literal leftovers. Pure text transform.
func (r *Rewriter) Rewrite(body string) string {
	for _, rule := range r.rules {
		body = rule.re.ReplaceAllString(body, rule.repl)
	}
	return r.leftover.Replace(body)
}

// MirrorImages scans body for legacy upload URLs and mirrors each distinct
// one into blob storage. It must run over the pre-rewrite body: Rewrite
// changes the path shapes this scan depends on. Side effect only.
func (r *Rewriter) MirrorImages(ctx context.Context, body string) {
	seen := make(map[string]struct{})
	for _, imageURL := range r.uploads.FindAllString(body, -1) {
		if _, ok := seen[imageURL]; ok {
			continue
		}
		seen[imageURL] = struct{}{}
		r.mirror.Ensure(ctx, imageURL)
	}
}
