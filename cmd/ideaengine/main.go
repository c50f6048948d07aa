// ideaengine sends one prompt to several model providers at once and ranks
// the idea bundles that come back.
//
// Usage:
//
//	ideaengine generate "plan a neighbourhood tool library" --providers openai,anthropic
//	ideaengine generate --recipe youtube-playlist-auto-translate --var playlistUrl=... --var targetLanguage=es
//	ideaengine serve
//	ideaengine serve-mcp [--http addr]
//	ideaengine chats [new|messages|send|feedback]
//	ideaengine recipes [import]
//	ideaengine eval --recipe <id> --problems problems.yml
//	ideaengine export <chat-id> --format md
package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command line and releases the store however it ends.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	a := &app{}
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}
