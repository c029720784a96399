package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/vdavid/mailcore/internal/config"
)

type envCmd struct{}

func (*envCmd) Name() string     { return "env" }
func (*envCmd) Synopsis() string { return "list the environment variables mailctl reads" }
func (*envCmd) Usage() string {
	return `env:
	print every MAILCORE_ variable with its default
`
}

func (*envCmd) SetFlags(*flag.FlagSet) {}

func (*envCmd) Execute(context.Context, *flag.FlagSet, ...interface{}) subcommands.ExitStatus {
	if err := config.Usage(os.Stdout); err != nil {
		return fatal(err)
	}
	return subcommands.ExitSuccess
}

type validateCmd struct{}

func (*validateCmd) Name() string     { return "validate" }
func (*validateCmd) Synopsis() string { return "check that the account can log in" }
func (*validateCmd) Usage() string {
	return `validate:
	connect and log in to the inbound server
`
}

func (*validateCmd) SetFlags(*flag.FlagSet) {}

func (*validateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fatal(err)
	}
	defer s.Close()

	if _, err := s.async.Validate(ctx).Wait(ctx); err != nil {
		return fatal(err)
	}
	fmt.Println("OK")
	return subcommands.ExitSuccess
}

type foldersCmd struct{}

func (*foldersCmd) Name() string     { return "folders" }
func (*foldersCmd) Synopsis() string { return "list selectable folders" }
func (*foldersCmd) Usage() string {
	return `folders:
	list the folders that can hold messages
`
}

func (*foldersCmd) SetFlags(*flag.FlagSet) {}

func (*foldersCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, err := openSession()
	if err != nil {
		return fatal(err)
	}
	defer s.Close()

	folders, err := s.async.ListFolders(ctx).Wait(ctx)
	if err != nil {
		return fatal(err)
	}
	for _, f := range folders {
		fmt.Println(f)
	}
	return subcommands.ExitSuccess
}

type recentCmd struct{}

func (*recentCmd) Name() string     { return "recent" }
func (*recentCmd) Synopsis() string { return "list the newest messages of a folder" }
func (*recentCmd) Usage() string {
	return `recent <folder>:
	list up to ten messages, newest first, prefixed with their index
`
}

func (*recentCmd) SetFlags(*flag.FlagSet) {}

func (*recentCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	folder := f.Arg(0)
	if folder == "" {
		return usage("folder required")
	}

	s, err := openSession()
	if err != nil {
		return fatal(err)
	}
	defer s.Close()

	lines, err := s.async.ListRecentSubjects(ctx, folder).Wait(ctx)
	if err != nil {
		return fatal(err)
	}
	for i, line := range lines {
		fmt.Printf("%d\t%s\n", i, line)
	}
	return subcommands.ExitSuccess
}

type readCmd struct {
	output string
}

func (*readCmd) Name() string     { return "read" }
func (*readCmd) Synopsis() string { return "show one message" }
func (*readCmd) Usage() string {
	return `read [flags] <folder> <index>:
	print the message body and its attachment names
`
}

func (r *readCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.output, "output", "html", "output format: html, safe or json")
}

func (r *readCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		return usage("folder and index required")
	}
	idx, err := parseIndex(f.Arg(1))
	if err != nil {
		return usage(err.Error())
	}
	switch r.output {
	case "html", "safe", "json":
	default:
		return usage("unknown output type: " + r.output)
	}

	s, err := openSession()
	if err != nil {
		return fatal(err)
	}
	defer s.Close()

	msg, err := s.async.ReadMessage(ctx, f.Arg(0), idx).Wait(ctx)
	if err != nil {
		return fatal(err)
	}

	switch r.output {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(msg); err != nil {
			return fatal(err)
		}
		return subcommands.ExitSuccess
	case "safe":
		fmt.Println(msg.SafeHTML)
	default:
		fmt.Println(msg.HTMLBody)
	}
	if len(msg.AttachmentNames) > 0 {
		fmt.Printf("\nAttachments: %s\n", strings.Join(msg.AttachmentNames, ", "))
	}
	for _, problem := range msg.Malformed {
		fmt.Fprintf(os.Stderr, "Skipped part: %v\n", problem)
	}
	return subcommands.ExitSuccess
}

type downloadCmd struct{}

func (*downloadCmd) Name() string     { return "download" }
func (*downloadCmd) Synopsis() string { return "save an attachment" }
func (*downloadCmd) Usage() string {
	return `download <folder> <index> <filename>:
	save the named attachment to the download dir, replacing any existing file
`
}

func (*downloadCmd) SetFlags(*flag.FlagSet) {}

func (*downloadCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		return usage("folder, index and filename required")
	}
	idx, err := parseIndex(f.Arg(1))
	if err != nil {
		return usage(err.Error())
	}

	s, err := openSession()
	if err != nil {
		return fatal(err)
	}
	defer s.Close()

	path, err := s.async.Download(ctx, f.Arg(0), idx, f.Arg(2)).Wait(ctx)
	if err != nil {
		return fatal(err)
	}
	fmt.Println(path)
	return subcommands.ExitSuccess
}

type sendCmd struct {
	to          string
	subject     string
	body        string
	bodyFile    string
	attachments listFlag
}

func (*sendCmd) Name() string     { return "send" }
func (*sendCmd) Synopsis() string { return "send an HTML message" }
func (*sendCmd) Usage() string {
	return `send -to <addresses> -subject <subject> [-body <html> | -body-file <path>] [-attach <path>]...:
	send an HTML message from the account address
`
}

func (c *sendCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.to, "to", "", "comma-separated recipients")
	f.StringVar(&c.subject, "subject", "", "message subject")
	f.StringVar(&c.body, "body", "", "HTML body")
	f.StringVar(&c.bodyFile, "body-file", "", "read the HTML body from a file")
	f.Var(&c.attachments, "attach", "file to attach, repeatable")
}

func (c *sendCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.to == "" {
		return usage("-to required")
	}
	if c.body != "" && c.bodyFile != "" {
		return usage("use -body or -body-file, not both")
	}

	body := c.body
	if c.bodyFile != "" {
		data, err := os.ReadFile(c.bodyFile)
		if err != nil {
			return fatal(err)
		}
		body = string(data)
	}

	s, err := openSession()
	if err != nil {
		return fatal(err)
	}
	defer s.Close()

	if _, err := s.async.Send(ctx, c.to, c.subject, body, c.attachments).Wait(ctx); err != nil {
		return fatal(err)
	}
	fmt.Println("Sent")
	return subcommands.ExitSuccess
}
