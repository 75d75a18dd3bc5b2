package main

import (
	"context"
	"errors"
	"fmt"

	"tiquetera/internal/auth"

	"github.com/spf13/pflag"
)

func loginCommand(a *app) *command {
	var email, password string
	return &command{
		name:    "login",
		usage:   "login [--email EMAIL] [--password PASSWORD]",
		summary: "Inicia sesión y guarda el token",
		flags: func() *pflag.FlagSet {
			fs := newFlagSet("login")
			fs.StringVarP(&email, "email", "e", "", "correo electrónico")
			fs.StringVarP(&password, "password", "p", "", "contraseña (se pide si se omite)")
			return fs
		},
		run: func(ctx context.Context, _ []string) error {
			var err error
			if email == "" {
				if email, err = a.prompt("Correo: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.prompt("Contraseña: "); err != nil {
					return err
				}
			}

			resp, err := a.auth.Login(ctx, auth.LoginRequest{Email: email, Password: password})
			if err != nil {
				return errors.New(auth.UserMessage(err))
			}
			fmt.Fprintf(a.out, "%s. Hola, %s.\n", resp.Message, resp.Username)
			return nil
		},
	}
}

func logoutCommand(a *app) *command {
	return &command{
		name:    "logout",
		summary: "Cierra la sesión local",
		run: func(ctx context.Context, _ []string) error {
			if err := a.auth.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Sesión cerrada.")
			return nil
		},
	}
}

func whoamiCommand(a *app) *command {
	return &command{
		name:    "whoami",
		summary: "Muestra el usuario de la sesión actual",
		run: func(ctx context.Context, _ []string) error {
			user, err := a.auth.CurrentUser(ctx)
			if err != nil {
				return errors.New(auth.UserMessage(err))
			}
			fmt.Fprintf(a.out, "%s <%s> (id %d)\n", user.Username, user.Email, user.ID)

			verified, err := a.auth.EmailStatus(ctx)
			if err != nil {
				return errors.New(auth.UserMessage(err))
			}
			if !verified {
				fmt.Fprintln(a.out, "Tu correo aún no está verificado.")
			}
			return nil
		},
	}
}

func registerCommand(a *app) *command {
	var req auth.RegisterRequest
	return &command{
		name:    "register",
		usage:   "register [flags]",
		summary: "Crea una cuenta",
		flags: func() *pflag.FlagSet {
			fs := newFlagSet("register")
			fs.StringVar(&req.Username, "username", "", "nombre de usuario")
			fs.StringVar(&req.Email, "email", "", "correo electrónico")
			fs.StringVar(&req.FirstName, "first-name", "", "nombre")
			fs.StringVar(&req.LastName, "last-name", "", "apellido")
			fs.StringVar(&req.Phone, "phone", "", "teléfono")
			fs.StringVar(&req.BirthDate, "birth-date", "", "fecha de nacimiento (AAAA-MM-DD)")
			fs.StringVar(&req.DocumentType, "document-type", "", "tipo de documento (ver 'catalogs --documents')")
			fs.StringVar(&req.Document, "document", "", "número de documento")
			fs.StringVar(&req.Country, "country", auth.CountryColombia, "país")
			fs.IntVar(&req.Department, "department", 0, "id de departamento (Colombia)")
			fs.IntVar(&req.City, "city", 0, "id de ciudad (Colombia)")
			fs.StringVar(&req.DepartmentText, "department-text", "", "departamento o estado (otros países)")
			fs.StringVar(&req.CityText, "city-text", "", "ciudad (otros países)")
			fs.StringVar(&req.Password, "password", "", "contraseña")
			fs.StringVar(&req.PasswordConfirm, "password-confirm", "", "repite la contraseña")
			return fs
		},
		run: func(ctx context.Context, _ []string) error {
			resp, err := a.auth.Register(ctx, req)
			if err != nil {
				var fe *auth.FieldError
				if errors.As(err, &fe) && fe.Field != "" {
					return fmt.Errorf("%s: %s", fe.Field, fe.Message)
				}
				return errors.New(auth.UserMessage(err))
			}
			fmt.Fprintln(a.out, resp.Message)
			return nil
		},
	}
}

func verifyEmailCommand(a *app) *command {
	var resend string
	return &command{
		name:    "verify-email",
		usage:   "verify-email <token> | verify-email --resend EMAIL",
		summary: "Verifica el correo o reenvía el código",
		flags: func() *pflag.FlagSet {
			fs := newFlagSet("verify-email")
			fs.StringVar(&resend, "resend", "", "reenviar el código a este correo")
			return fs
		},
		run: func(ctx context.Context, args []string) error {
			if resend != "" {
				resp, err := a.auth.ResendVerification(ctx, resend)
				if err != nil {
					return errors.New(auth.UserMessage(err))
				}
				fmt.Fprintln(a.out, resp.Text())
				return nil
			}

			if err := requireArgs(args, 1, "verify-email <token>"); err != nil {
				return err
			}
			resp, err := a.auth.VerifyEmail(ctx, args[0])
			if err != nil {
				return errors.New(auth.UserMessage(err))
			}
			fmt.Fprintln(a.out, resp.Text())
			return nil
		},
	}
}
