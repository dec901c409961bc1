package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context) error
	ChangeDir(ctx context.Context, path string) error
	Upload(ctx context.Context, paths []string) error
	Download(ctx context.Context, name string) error
	MakeDir(ctx context.Context, name string) error
	Remove(ctx context.Context, names []string) error
	Move(ctx context.Context, targetPath string, names []string) error
	Copy(ctx context.Context, targetPath string, names []string) error
	Rename(ctx context.Context, name, newName string) error
	Search(ctx context.Context, query string) error
	Recent(ctx context.Context) error
	Star(ctx context.Context, name, note string) error
	Starred(ctx context.Context) error
	Users(ctx context.Context) error
	Activity(ctx context.Context) error
	Lock(ctx context.Context, name string) error
	Unlock(ctx context.Context, name string) error
	Uploads(ctx context.Context) error
	Quota(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the sortedstorage CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Any errors returned by command handlers are ignored here; handlers report
// their own failures through the notification center or logs. This keeps the
// REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ss> %s ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (l)ist, cd, upload, download, mkdir, rm, mv, cp, rename,")
				printlnFn("  search, recent, star, starred, users, activity, lock, unlock, uploads, quota,")
				printlnFn("  logout, exit")
			} else {
				printlnFn("Available commands: register, login, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "l", "list", "ls":
			_ = a.List(ctx)

		case "cd":
			if len(args) == 0 {
				printlnFn("Usage: cd <path>")
				continue
			}
			_ = a.ChangeDir(ctx, args[0])

		case "upload":
			if len(args) == 0 {
				printlnFn("Usage: upload <local-file> ...")
				continue
			}
			_ = a.Upload(ctx, args)

		case "download":
			if len(args) == 0 {
				printlnFn("Usage: download <name>")
				continue
			}
			_ = a.Download(ctx, args[0])

		case "mkdir":
			if len(args) == 0 {
				printlnFn("Usage: mkdir <name>")
				continue
			}
			_ = a.MakeDir(ctx, args[0])

		case "rm":
			if len(args) == 0 {
				printlnFn("Usage: rm <name> ...")
				continue
			}
			_ = a.Remove(ctx, args)

		case "mv":
			if len(args) < 2 {
				printlnFn("Usage: mv <target-path> <name> ...")
				continue
			}
			_ = a.Move(ctx, args[0], args[1:])

		case "cp":
			if len(args) < 2 {
				printlnFn("Usage: cp <target-path> <name> ...")
				continue
			}
			_ = a.Copy(ctx, args[0], args[1:])

		case "rename":
			if len(args) < 2 {
				printlnFn("Usage: rename <name> <new-name>")
				continue
			}
			_ = a.Rename(ctx, args[0], args[1])

		case "search":
			if len(args) == 0 {
				printlnFn("Usage: search <query>")
				continue
			}
			_ = a.Search(ctx, strings.Join(args, " "))

		case "recent":
			_ = a.Recent(ctx)

		case "star":
			if len(args) == 0 {
				printlnFn("Usage: star <name> [note]")
				continue
			}
			_ = a.Star(ctx, args[0], strings.Join(args[1:], " "))

		case "starred":
			_ = a.Starred(ctx)

		case "users":
			_ = a.Users(ctx)

		case "activity":
			_ = a.Activity(ctx)

		case "lock":
			if len(args) == 0 {
				printlnFn("Usage: lock <name>")
				continue
			}
			_ = a.Lock(ctx, args[0])

		case "unlock":
			if len(args) == 0 {
				printlnFn("Usage: unlock <name>")
				continue
			}
			_ = a.Unlock(ctx, args[0])

		case "uploads":
			_ = a.Uploads(ctx)

		case "quota":
			_ = a.Quota(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
