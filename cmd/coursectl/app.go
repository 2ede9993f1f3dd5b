package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"course-studio/internal/auth"
	"course-studio/internal/config"
	"course-studio/internal/courses"
	"course-studio/internal/devutil"
	"course-studio/internal/domain"
	"course-studio/internal/export"
	"course-studio/internal/form"
	"course-studio/internal/sftpclient"

	"github.com/rs/zerolog"
)

const usage = `usage: coursectl <command> [flags]

commands:
  list    [-fields a,b]                        list courses
  get     [-fields a,b] <id>...                fetch courses by id
  create  -title T -description D [-media-url U]
  edit    <id> [-title T] [-description D] [-media-url U]
  delete  <id>...
  export  [-out file.csv] [-detail] [-sftp]    write courses to CSV
`

type app struct {
	cfg     config.Config
	log     zerolog.Logger
	out     io.Writer
	courses *courses.Client

	// swapped in tests
	upload func(ctx context.Context, cfg sftpclient.Config, localPath, remoteName string) error
}

func newApp(cfg config.Config, log zerolog.Logger, out io.Writer) *app {
	c := courses.New(cfg.APIBaseURL, cfg.APIToken, log)
	if cfg.APITimeout > 0 {
		c.HTTP.Timeout = cfg.APITimeout
	}
	if cfg.ExportWorkers > 0 {
		c.Workers = cfg.ExportWorkers
	}
	return &app{
		cfg:     cfg,
		log:     log,
		out:     out,
		courses: c,
		upload:  sftpclient.UploadFile,
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return flag.ErrHelp
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(ctx, rest)
	case "get":
		return a.get(ctx, rest)
	case "create":
		return a.create(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "export":
		return a.export(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := a.flagSet("list")
	fields := fs.String("fields", "", "comma separated fields to print (default all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	all, err := a.courses.ListCourses(ctx)
	if err != nil {
		return err
	}
	a.log.Info().Int("count", len(all)).Msg("fetched courses")
	return a.printCourses(all, *fields)
}

func (a *app) get(ctx context.Context, args []string) error {
	fs := a.flagSet("get")
	fields := fs.String("fields", "", "comma separated fields to print (default all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ids := courseIDs(fs.Args())
	if len(ids) == 0 {
		return errors.New("get: at least one course id is required")
	}

	found, errs := a.courses.GetCourses(ctx, ids)
	ok := make([]domain.Course, 0, len(found))
	for _, c := range found {
		if c.ID != "" || c.Title != "" {
			ok = append(ok, c)
		}
	}
	if err := a.printCourses(ok, *fields); err != nil {
		return err
	}
	return errors.Join(errs...)
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := a.flagSet("create")
	title := fs.String("title", "", "course title (required)")
	description := fs.String("description", "", "course description (required)")
	mediaURL := fs.String("media-url", "", "video or other media URL")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := a.newForm("")
	if err != nil {
		return err
	}
	if err := f.Set(form.FieldTitle, *title); err != nil {
		return err
	}
	if err := f.Set(form.FieldDescription, *description); err != nil {
		return err
	}
	if err := f.Set(form.FieldMediaURL, *mediaURL); err != nil {
		return err
	}
	return a.submit(ctx, f)
}

func (a *app) edit(ctx context.Context, args []string) error {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return errors.New("edit: course id is required as the first argument")
	}
	id := domain.CourseID(strings.TrimSpace(args[0]))

	fs := a.flagSet("edit")
	fs.String("title", "", "new course title")
	fs.String("description", "", "new course description")
	fs.String("media-url", "", "new media URL (empty clears it)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	f, err := a.newForm(id)
	if err != nil {
		return err
	}
	if err := f.Mount(ctx); err != nil {
		return err
	}

	// only flags given on the command line overwrite loaded values
	var setErr error
	fs.Visit(func(fl *flag.Flag) {
		name := map[string]form.Field{
			"title":       form.FieldTitle,
			"description": form.FieldDescription,
			"media-url":   form.FieldMediaURL,
		}[fl.Name]
		if err := f.Set(name, fl.Value.String()); err != nil && setErr == nil {
			setErr = err
		}
	})
	if setErr != nil {
		return setErr
	}
	return a.submit(ctx, f)
}

func (a *app) submit(ctx context.Context, f *form.Controller) error {
	err := f.Submit(ctx)
	if errors.Is(err, form.ErrInvalid) {
		errs := f.Errors()
		keys := make([]string, 0, len(errs))
		for k := range errs {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(a.out, "%s: %s\n", k, errs[form.Field(k)])
		}
	}
	return err
}

func (a *app) newForm(id domain.CourseID) (*form.Controller, error) {
	user, err := auth.FromToken(a.cfg.APIToken, a.cfg.APIJWTSecret)
	if err != nil {
		return nil, fmt.Errorf("COURSE_API_TOKEN: %w", err)
	}
	return form.New(form.Deps{
		Courses:   a.courses,
		Notifier:  cliNotifier{out: a.out},
		Navigator: cliNavigator{log: a.log},
		User:      user,
		Log:       a.log,
	}, id), nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	ids := courseIDs(args)
	if len(ids) == 0 {
		return errors.New("delete: at least one course id is required")
	}

	errs := a.courses.DeleteCourses(ctx, ids)
	fmt.Fprintf(a.out, "OK: deleted %d of %d courses\n", len(ids)-len(errs), len(ids))
	return errors.Join(errs...)
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := a.flagSet("export")
	outPath := fs.String("out", "courses.csv", "output csv path")
	detail := fs.Bool("detail", false, "fetch every course individually for full records")
	uploadSFTP := fs.Bool("sftp", false, "upload the generated CSV via SFTP")
	if err := fs.Parse(args); err != nil {
		return err
	}

	all, err := a.courses.ListCourses(ctx)
	if err != nil {
		return err
	}

	if *detail && len(all) > 0 {
		ids := make([]domain.CourseID, 0, len(all))
		for _, c := range all {
			ids = append(ids, c.ID)
		}
		full, errs := a.courses.GetCourses(ctx, ids)
		if len(errs) > 0 {
			return fmt.Errorf("export: %d course fetches failed: %w", len(errs), errors.Join(errs...))
		}
		all = full
	}

	if err := export.WriteCourseCSVFile(*outPath, all); err != nil {
		return err
	}
	a.log.Info().Int("count", len(all)).Str("path", *outPath).Msg("wrote course export")
	fmt.Fprintf(a.out, "OK: wrote %d courses to %s\n", len(all), *outPath)

	if !*uploadSFTP {
		return nil
	}

	upCfg := sftpclient.Config{
		Host:           a.cfg.SFTPHost,
		Port:           a.cfg.SFTPPort,
		User:           a.cfg.SFTPUser,
		Pass:           a.cfg.SFTPPass,
		RemoteDir:      a.cfg.SFTPDir,
		KnownHostsFile: a.cfg.SFTPKnownHosts,
	}
	remoteName := filepath.Base(*outPath)

	upCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if err := a.upload(upCtx, upCfg, *outPath, remoteName); err != nil {
		return err
	}
	a.log.Info().Str("host", upCfg.Host).Str("dir", upCfg.RemoteDir).Str("file", remoteName).Msg("uploaded course export")
	fmt.Fprintf(a.out, "OK: uploaded %s to %s\n", remoteName, upCfg.Host)
	return nil
}

func (a *app) printCourses(list []domain.Course, fields string) error {
	var keys []string
	for _, k := range strings.Split(fields, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}

	enc := json.NewEncoder(a.out)
	for _, c := range list {
		if err := enc.Encode(devutil.Pick(c, keys...)); err != nil {
			return err
		}
	}
	return nil
}

func courseIDs(args []string) []domain.CourseID {
	out := make([]domain.CourseID, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, domain.CourseID(a))
		}
	}
	return out
}

// cliNotifier prints the messages a browser would show as toasts.
type cliNotifier struct{ out io.Writer }

func (n cliNotifier) Success(msg string) { fmt.Fprintln(n.out, "OK: "+msg) }
func (n cliNotifier) Error(msg string)   { fmt.Fprintln(n.out, "ERROR: "+msg) }

type cliNavigator struct{ log zerolog.Logger }

func (n cliNavigator) Navigate(path string) {
	n.log.Debug().Str("path", path).Msg("navigate")
}
