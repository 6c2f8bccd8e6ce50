// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

const (
	PortInUseId Id = iota + 1
	ConfigLoadFailedId
	InvalidSettingId
	ConsoleStartFailedId
	FeedStartFailedId
	ServerUnreachableId
)

type (
	Id int

	MarkdownMsg string

	HttpLink string

	// Issue is one catalog entry: Markdown guidance shown when a known
	// failure reaches the operator.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the entry with glamour using stylePath ("dark", "light",
// "notty", "auto" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	portInUseIssue = &Issue{
		id: PortInUseId,
		mdMsg: `
# Command port is busy!

The command server could not bind its TCP port. Another process (or another
fxbridge instance) is already listening on it.

## Things you can try
- Find the owner of the port:
~~~
$ ss -ltnp | grep 7777
~~~
- Pick another port and point your controller at it:
~~~
$ fxbridge serve --port 7778
~~~
- Leave auto-restart on: the server retries on its own once the port frees up.`,
		extLinks: []HttpLink{"https://docs.streamer.bot/api/sub-actions/core/network/tcp-client"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

fxbridge could not read or validate its config file.

## Things you can try
- Print the path fxbridge is reading:
~~~
$ fxbridge config path
~~~
- Compare your file against the defaults:
~~~
$ fxbridge config show
~~~
- Regenerate a fresh file (your old one is kept):
~~~
$ fxbridge config init
~~~

## Example
~~~cue
server: {
	port:         7777
	auto_restart: true
}
techniques: [{name: "Bloom"}, {name: "MotionBlur"}]
~~~`,
	}

	invalidSettingIssue = &Issue{
		id: InvalidSettingId,
		mdMsg: `
# Invalid setting!

A server setting is outside its allowed range.

| Setting                | Range     |
|------------------------|-----------|
| port                   | 1 - 65535 |
| restart_delay          | 1 - 60 s  |
| max_restart_attempts   | 1 - 50    |`,
	}

	consoleStartFailedIssue = &Issue{
		id: ConsoleStartFailedId,
		mdMsg: `
# Operator console failed to start!

The SSH console could not start. The command server itself keeps running.

## Things you can try
- Check that ` + "`console.port`" + ` is free
- Set ` + "`console.password`" + ` in the config file
- Point ` + "`console.host_key_path`" + ` at a writable location`,
		extLinks: []HttpLink{"https://github.com/charmbracelet/wish"},
	}

	feedStartFailedIssue = &Issue{
		id: FeedStartFailedId,
		mdMsg: `
# Status feed failed to start!

The HTTP status feed could not bind ` + "`feed.address`" + `. The command server
itself keeps running.

## Things you can try
- Choose another address in the config file
- Disable the feed with ` + "`feed: enabled: false`",
	}

	serverUnreachableIssue = &Issue{
		id: ServerUnreachableId,
		mdMsg: `
# Command server unreachable!

Nothing answered on the command port.

## Things you can try
- Start the server:
~~~
$ fxbridge serve
~~~
- Check the address you passed with ` + "`--addr`",
	}

	issues = map[Id]*Issue{
		portInUseIssue.Id():          portInUseIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		invalidSettingIssue.Id():     invalidSettingIssue,
		consoleStartFailedIssue.Id(): consoleStartFailedIssue,
		feedStartFailedIssue.Id():    feedStartFailedIssue,
		serverUnreachableIssue.Id():  serverUnreachableIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
