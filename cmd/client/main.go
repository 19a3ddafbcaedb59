// Package main is an interactive shell over the fitsync daemon API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/nm1236623-droid/fitsync/internal/client"
	"github.com/nm1236623-droid/fitsync/internal/syncmode"
)

var (
	version   string
	buildDate string
)

const help = `Available commands:
  help
  login <token> | logout
  mode [local_only|remote_only|remote_first|bidirectional]
  diet add | diet list [yyyy-MM-dd] | diet delete <id>
  training add | training list [yyyy-MM-dd] | training delete <id>
  stats weight <exercise> | stats calories
  exit`

// repl runs the interactive shell loop against the daemon at c.
func repl(ctx context.Context, c *client.Client, in io.Reader, out io.Writer) {
	p := client.NewPrompter(in, out)

	for {
		line, ok := p.Next("fitsync> ")
		if !ok {
			fmt.Fprintln(out)
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Fprintln(out, help)
		case "login":
			if len(args) < 2 {
				fmt.Fprintln(out, "Usage: login <token>")
				continue
			}
			u, err := c.SignIn(ctx, args[1])
			report(out, err, "Signed in as "+u.ID)
		case "logout":
			report(out, c.SignOut(ctx), "Signed out")
		case "mode":
			mode(ctx, c, out, args[1:])
		case client.KindDiet, client.KindTraining:
			records(ctx, c, p, out, args)
		case "stats":
			statistics(ctx, c, out, args[1:])
		case "exit":
			fmt.Fprintln(out, "Bye")
			return
		default:
			fmt.Fprintln(out, "Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func report(out io.Writer, err error, success string) {
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return
	}
	fmt.Fprintln(out, success)
}

func mode(ctx context.Context, c *client.Client, out io.Writer, args []string) {
	if len(args) == 0 {
		m, err := c.Mode(ctx)
		report(out, err, "Sync mode: "+m.String())
		return
	}
	m, err := syncmode.ParseMode(args[0])
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return
	}
	report(out, c.SetMode(ctx, m), "Sync mode set to "+m.String())
}

func records(ctx context.Context, c *client.Client, p *client.Prompter, out io.Writer, args []string) {
	kind := args[0]
	if len(args) < 2 {
		fmt.Fprintf(out, "Usage: %s add | list [date] | delete <id>\n", kind)
		return
	}
	day := ""
	if len(args) > 2 {
		day = args[2]
	}

	switch args[1] {
	case "add":
		if kind == client.KindDiet {
			rec, err := p.PromptDiet()
			if err == nil {
				rec, err = c.AddDiet(ctx, rec)
			}
			report(out, err, "Added "+rec.ID)
			return
		}
		rec, err := p.PromptTraining()
		if err == nil {
			rec, err = c.AddTraining(ctx, rec)
		}
		report(out, err, "Added "+rec.ID)
	case "list":
		if kind == client.KindDiet {
			list, err := c.Diet(ctx, day)
			if err != nil {
				fmt.Fprintln(out, "Error:", err)
				return
			}
			for _, r := range list {
				fmt.Fprintf(out, "%s  %s  %-20s %7.0f kcal\n", r.ID, r.Date.Format("2006-01-02"), r.FoodName, r.Calories)
			}
			return
		}
		list, err := c.Training(ctx, day)
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
			return
		}
		for _, r := range list {
			weight := "-"
			if r.Weight != nil {
				weight = fmt.Sprintf("%.1f kg", *r.Weight)
			}
			fmt.Fprintf(out, "%s  %s  %-20s %d sets  %s\n", r.ID, r.Date.Format("2006-01-02"), r.Exercise, r.Sets, weight)
		}
	case "delete":
		if len(args) < 3 {
			fmt.Fprintf(out, "Usage: %s delete <id>\n", kind)
			return
		}
		report(out, c.Delete(ctx, kind, args[2]), "Deleted")
	default:
		fmt.Fprintf(out, "Usage: %s add | list [date] | delete <id>\n", kind)
	}
}

func statistics(ctx context.Context, c *client.Client, out io.Writer, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(out, "Usage: stats weight <exercise> | stats calories")
		return
	}
	switch args[0] {
	case "weight":
		if len(args) < 2 {
			fmt.Fprintln(out, "Usage: stats weight <exercise>")
			return
		}
		points, err := c.WeightProgression(ctx, strings.Join(args[1:], " "))
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
			return
		}
		for _, pt := range points {
			fmt.Fprintf(out, "%s  %.1f kg\n", pt.Day.Format("2006-01-02"), pt.Value)
		}
	case "calories":
		points, err := c.DailyCalories(ctx)
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
			return
		}
		for _, pt := range points {
			fmt.Fprintf(out, "%s  %.0f kcal\n", pt.Day.Format("2006-01-02"), pt.Value)
		}
	default:
		fmt.Fprintln(out, "Usage: stats weight <exercise> | stats calories")
	}
}

// main parses command-line flags and starts the shell.
func main() {
	var (
		baseURL string
		token   string
		showVer bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "daemon base URL")
	flag.StringVar(&token, "token", "", "identity token to sign in with before the shell starts")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("fitsync client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	ctx := context.Background()
	c := client.New(baseURL)
	if token != "" {
		if _, err := c.SignIn(ctx, token); err != nil {
			log.Fatal(err)
		}
	}
	repl(ctx, c, os.Stdin, os.Stdout)
}
