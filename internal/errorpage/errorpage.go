// Package errorpage はエラー時に返すHTMLページを生成します
package errorpage

import (
	"html"
	"os"
	"runtime"
	"strconv"
	"strings"

	"tiger/internal/protocol"
)

// Generator はサーバー情報をフッターに含むエラーページを生成する。
// I/Oは行わないため、複数のワーカーから同時に使ってよい。
type Generator struct {
	version string
	os      string
	host    string
	port    int
}

// New は新しいGeneratorを作成する。
// host が空の場合はマシンのホスト名、取得できなければ "localhost" を使う。
func New(version, host string, port int) *Generator {
	if host == "" {
		h, err := os.Hostname()
		if err != nil || h == "" {
			h = "localhost"
		}
		host = h
	}

	return &Generator{
		version: version,
		os:      runtime.GOOS,
		host:    host,
		port:    port,
	}
}

// Message は任意のメッセージを表示するページを生成する
func (g *Generator) Message(message string) string {
	return g.page("Error: " + html.EscapeString(message))
}

// Status はステータスを表示するページを生成する
func (g *Generator) Status(status protocol.Status) string {
	return g.page(heading(status))
}

// StatusPath はステータスと要求されたパスを表示するページを生成する
func (g *Generator) StatusPath(status protocol.Status, path string) string {
	return g.page(heading(status) + " " + html.EscapeString(path))
}

func heading(status protocol.Status) string {
	return strconv.Itoa(status.Code()) + ": " + status.String()
}

func (g *Generator) page(title string) string {
	var b strings.Builder
	b.WriteString("<html><body><h1>")
	b.WriteString(title)
	b.WriteString("</h1><hr><p>tiger/")
	b.WriteString(html.EscapeString(g.version))
	b.WriteString(" (")
	b.WriteString(g.os)
	b.WriteString(") Server at ")
	b.WriteString(html.EscapeString(g.host))
	b.WriteString(" Port ")
	b.WriteString(strconv.Itoa(g.port))
	b.WriteString("</p></body></html>")
	return b.String()
}
