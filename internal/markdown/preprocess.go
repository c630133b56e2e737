package markdown

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
)

// Preprocessed is what a page framework receives for a markdown file.
type Preprocessed struct {
	Code string         `json:"code"`
	Data map[string]any `json:"data"`
}

// IsMarkdown reports whether filename has a markdown extension.
func IsMarkdown(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".mdx", ".svx":
		return true
	}
	return false
}

// Preprocess compiles a markdown file for a page framework. It returns nil
// for non-markdown files. A compile failure is logged and the original
// content is passed through with empty data.
func (c *Compiler) Preprocess(ctx context.Context, content []byte, filename string) *Preprocessed {
	if !IsMarkdown(filename) {
		return nil
	}
	res, err := c.Compile(ctx, content, filename)
	if err != nil {
		c.logger.Warn("markdown preprocess failed",
			slog.String("path", filename),
			slog.String("error", err.Error()),
		)
		return &Preprocessed{Code: string(content), Data: map[string]any{}}
	}
	return &Preprocessed{Code: res.Code, Data: res.Data}
}
