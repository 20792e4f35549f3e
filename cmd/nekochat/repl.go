package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/soratani/nekochat/pkg/config"
	"github.com/soratani/nekochat/pkg/dispatch"
)

// runREPL reads prompts from stdin one line at a time and prints each reply
// before reading the next. An empty line or the literal /bye ends the
// session with exit code 0.
func runREPL(ctx context.Context, cfg config.Config, d *dispatch.Dispatcher, markdown bool) error {
	printBanner(cfg)

	var renderer *glamour.TermRenderer
	if markdown {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err == nil {
			renderer = r
		}
	}

	in := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrefixStyle.Render("You > "))

		if !in.Scan() {
			fmt.Println()
			break
		}

		prompt := strings.TrimSpace(in.Text())

		if prompt == "/bye" {
			fmt.Println(dimStyle.Render("Bye! See you next time!"))
			break
		}

		if prompt == "" {
			break
		}

		reply := d.Reply(ctx, prompt)

		if renderer != nil {
			if out, err := renderer.Render(reply); err == nil {
				reply = strings.TrimRight(out, "\n")
			}
		}

		fmt.Println(aiPrefixStyle.Render("AI > ") + reply)
	}

	return in.Err()
}

// printBanner reports the selected model and backend mode before the first
// prompt.
func printBanner(cfg config.Config) {
	fmt.Println(bannerStyle.Render("Model: " + cfg.ModelName))

	if cfg.UseLocalModel {
		fmt.Println(dimStyle.Render("Running in local mode (" + cfg.LocalFramework + ")"))
	} else {
		mode := "custom schema"
		if cfg.OpenAICompatible {
			mode = "OpenAI-compatible schema"
		}
		fmt.Println(dimStyle.Render("Running in online mode (" + mode + ")"))
	}

	fmt.Println(dimStyle.Render("Starting chat client (empty line or /bye to exit)"))
}
