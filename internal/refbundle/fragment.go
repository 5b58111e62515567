package refbundle

import (
	"html"
	"strings"
)

// AudioTag renders the audio player for a media file served at url.
func AudioTag(fileName, mimeType, url string) string {
	url = html.EscapeString(url)
	fileName = html.EscapeString(fileName)

	var b strings.Builder
	b.WriteString(`<audio id="audio" controls><source src="`)
	b.WriteString(url)
	b.WriteString(`" type="`)
	b.WriteString(html.EscapeString(mimeType))
	b.WriteString(`">Your browser does not support the audio element. `)
	b.WriteString(`<a href="`)
	b.WriteString(url)
	b.WriteString(`" title="`)
	b.WriteString(fileName)
	b.WriteString(`" class="audio"><span class="fa-solid fa-play">`)
	b.WriteString(fileName)
	b.WriteString(`</span></a></audio>`)
	return b.String()
}

// Fragment wraps the audio tag and rendered body in the reference container.
func Fragment(audioTag string, body []byte) []byte {
	out := make([]byte, 0, len(audioTag)+len(body)+32)
	out = append(out, `<div class="ref">`...)
	out = append(out, audioTag...)
	out = append(out, body...)
	out = append(out, `</div>`...)
	out = append(out, '\n')
	return out
}
