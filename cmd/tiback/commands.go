package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/tiback/tiback-client/internal/core/domain"
	"github.com/tiback/tiback-client/internal/core/ports"
)

var loginOpts struct {
	email    string
	password string
}

func loginFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&loginOpts.email, "email", "e", "", "account email")
	fs.StringVarP(&loginOpts.password, "password", "p", "", "account password (default $TIBACK_PASSWORD)")
}

func runLogin(ctx context.Context, a *app, _ []string) error {
	password := loginOpts.password
	if password == "" {
		password = os.Getenv("TIBACK_PASSWORD")
	}
	if loginOpts.email == "" || password == "" {
		return errors.New("--email and --password are required")
	}

	res := a.auth.Login(ctx, loginOpts.email, password)
	if !res.Success {
		return errors.New(res.Error)
	}
	return printSession(a)
}

var registerOpts struct {
	reg  domain.Registration
	role string
}

func registerFlags(fs *pflag.FlagSet) {
	r := &registerOpts.reg
	fs.StringVarP(&r.Email, "email", "e", "", "account email")
	fs.StringVarP(&r.Password, "password", "p", "", "account password (default $TIBACK_PASSWORD)")
	fs.StringVar(&r.Nombre, "nombre", "", "first name")
	fs.StringVar(&r.Apellido, "apellido", "", "last name")
	fs.StringVar(&registerOpts.role, "role", string(domain.RoleCliente), "cliente, analista, supervisor or administrador")
	fs.StringVar(&r.Telefono, "telefono", "", "phone number")
	fs.StringVar(&r.Direccion, "direccion", "", "address")
	fs.StringVar(&r.Especialidad, "especialidad", "", "analyst specialty")
	fs.StringVar(&r.AreaResponsable, "area", "", "supervisor area")
}

func runRegister(ctx context.Context, a *app, _ []string) error {
	reg := registerOpts.reg
	if reg.Password == "" {
		reg.Password = os.Getenv("TIBACK_PASSWORD")
	}
	role, err := domain.ParseRole(registerOpts.role)
	if err != nil {
		return err
	}
	reg.Role = role

	res := a.auth.Register(ctx, reg)
	if !res.Success {
		return errors.New(res.Error)
	}
	return printSession(a)
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.auth.Restore(ctx)
	a.auth.Logout(ctx)
	a.out.line("logged out")
	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	ctx, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	return printSession(a)
}

func runRefresh(ctx context.Context, a *app, _ []string) error {
	ctx, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	if !a.auth.Refresh(ctx) {
		return errors.New("refresh failed; the session has been cleared")
	}
	return printSession(a)
}

type sessionView struct {
	Role      domain.Role  `json:"role"`
	User      *domain.User `json:"user,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}

func printSession(a *app) error {
	auth := a.store.State().Auth
	view := sessionView{Role: auth.CurrentRole(), User: auth.User}
	if claims, ok := a.auth.Claims(); ok && claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		view.ExpiresAt = &exp
	}

	return a.out.emit(view, func(w io.Writer) {
		fmt.Fprintf(w, "role:\t%s\n", view.Role)
		if view.User != nil {
			fmt.Fprintf(w, "user:\t%s (#%d)\n", view.User.FullName(), view.User.ID)
		}
		if view.ExpiresAt != nil {
			fmt.Fprintf(w, "token expires:\t%s\n", view.ExpiresAt.Local().Format(time.RFC1123))
		}
	})
}

var ticketOpts struct {
	id          int64
	create      bool
	title       string
	description string
	priority    string
	status      string
	assign      int64
	comment     string
	image       string
}

func ticketFlags(fs *pflag.FlagSet) {
	fs.Int64Var(&ticketOpts.id, "id", 0, "show or update this ticket")
	fs.BoolVar(&ticketOpts.create, "create", false, "create a ticket")
	fs.StringVar(&ticketOpts.title, "title", "", "title of the new ticket")
	fs.StringVar(&ticketOpts.description, "description", "", "description of the new ticket")
	fs.StringVar(&ticketOpts.priority, "priority", string(domain.PriorityMedia), "baja, media or alta")
	fs.StringVar(&ticketOpts.image, "image", "", "image file to attach to the new ticket")
	fs.StringVar(&ticketOpts.status, "status", "", "move --id to this status")
	fs.Int64Var(&ticketOpts.assign, "assign", 0, "assign --id to this analyst")
	fs.StringVar(&ticketOpts.comment, "comment", "", "comment sent with --assign")
}

func runTickets(ctx context.Context, a *app, _ []string) error {
	ctx, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	switch {
	case ticketOpts.create:
		params := domain.NewTicketParams{
			Title:       ticketOpts.title,
			Description: ticketOpts.description,
			Priority:    domain.TicketPriority(ticketOpts.priority),
		}
		if ticketOpts.image != "" {
			url, err := uploadFile(ctx, a, ticketOpts.image)
			if err != nil {
				return err
			}
			params.ImageURLs = []string{url}
		}
		ticket, err := a.tickets.CreateTicket(ctx, params)
		if err != nil {
			return err
		}
		return printTicket(a, *ticket)

	case ticketOpts.id != 0 && ticketOpts.status != "":
		ticket, err := a.tickets.UpdateStatus(ctx, ticketOpts.id, domain.TicketStatus(ticketOpts.status))
		if err != nil {
			return err
		}
		return printTicket(a, *ticket)

	case ticketOpts.id != 0 && ticketOpts.assign != 0:
		ticket, err := a.tickets.Assign(ctx, ports.AssignTicketParams{
			TicketID:  ticketOpts.id,
			AnalystID: ticketOpts.assign,
			Comment:   ticketOpts.comment,
		})
		if err != nil {
			return err
		}
		return printTicket(a, *ticket)

	case ticketOpts.id != 0:
		ticket, err := a.tickets.FetchTicket(ctx, ticketOpts.id)
		if err != nil {
			return err
		}
		return printTicket(a, *ticket)
	}

	if _, err := a.tickets.FetchTickets(ctx); err != nil {
		return err
	}
	tickets := a.store.State().Tickets.List()
	return a.out.emit(tickets, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tTITLE")
		for _, t := range tickets {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Status, t.Priority, t.Title)
		}
	})
}

func uploadFile(ctx context.Context, a *app, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	uploaded, err := a.media.UploadImage(ctx, f.Name(), f)
	if err != nil {
		return "", err
	}
	return uploaded.URL, nil
}

func printTicket(a *app, t domain.Ticket) error {
	return a.out.emit(t, func(w io.Writer) {
		fmt.Fprintf(w, "id:\t%d\n", t.ID)
		fmt.Fprintf(w, "title:\t%s\n", t.Title)
		fmt.Fprintf(w, "status:\t%s\n", t.Status)
		fmt.Fprintf(w, "priority:\t%s\n", t.Priority)
		if t.Analyst != nil {
			fmt.Fprintf(w, "analyst:\t%s\n", t.Analyst.FullName())
		}
		if t.Description != "" {
			fmt.Fprintf(w, "description:\t%s\n", strings.ReplaceAll(t.Description, "\n", " "))
		}
	})
}

var commentOpts struct {
	ticket int64
	text   string
}

func commentFlags(fs *pflag.FlagSet) {
	fs.Int64VarP(&commentOpts.ticket, "ticket", "t", 0, "ticket id")
	fs.StringVarP(&commentOpts.text, "text", "m", "", "comment to add; omit to list")
}

func runComment(ctx context.Context, a *app, args []string) error {
	if commentOpts.ticket == 0 {
		return errors.New("--ticket is required")
	}
	ctx, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	text := commentOpts.text
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}
	if text != "" {
		comment, err := a.comments.AddComment(ctx, commentOpts.ticket, text)
		if err != nil {
			return err
		}
		return a.out.emit(comment, func(w io.Writer) {
			fmt.Fprintf(w, "comment %d added to ticket %d\n", comment.ID, comment.TicketID)
		})
	}

	if _, err := a.comments.FetchComments(ctx, commentOpts.ticket); err != nil {
		return err
	}
	comments := a.store.State().Comments.List()
	return a.out.emit(comments, func(w io.Writer) {
		for _, c := range comments {
			author := ""
			if c.Author != nil {
				author = c.Author.Nombre
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.CreatedAt, author, c.Text)
		}
	})
}
