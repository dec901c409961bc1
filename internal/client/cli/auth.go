package cli

import (
	"context"
	"fmt"
	"os"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for account details and creates a new account. On success
// the session is signed in and the collaboration stack is started.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", os.Stdout)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.session.Register(ctx, name, email, password)
	if err != nil {
		a.log.Warn(ctx, "registration failed", "error", err.Error())
		a.notify.Error("Registration failed", err.Error())
		return err
	}

	printlnFn(fmt.Sprintf("Welcome, %s!", user.Name))
	a.startCollaboration(ctx)
	return a.storage.LoadFiles(ctx, "/")
}

// Login prompts for credentials and authenticates. On success the
// collaboration stack is started and the root listing is loaded.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		return err
	}

	user, err := a.session.Login(ctx, email, password)
	if err != nil {
		a.log.Warn(ctx, "login failed", "error", err.Error())
		a.notify.Error("Login failed", err.Error())
		return err
	}

	printlnFn(fmt.Sprintf("Welcome, %s!", user.Name))
	a.startCollaboration(ctx)
	return a.storage.LoadFiles(ctx, "/")
}

// Logout tears down the collaboration stack and ends the session.
func (a *App) Logout(ctx context.Context) error {
	a.stopCollaboration()
	if err := a.session.Logout(ctx); err != nil {
		a.log.Warn(ctx, "logout failed", "error", err.Error())
		return err
	}
	printlnFn("Logged out")
	return nil
}
