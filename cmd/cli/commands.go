package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/learnhub/learnhub-go/internal/learnhub"
	"github.com/learnhub/learnhub-go/internal/locale"
	"github.com/learnhub/learnhub-go/internal/model"
	"github.com/learnhub/learnhub-go/internal/region"
	"github.com/learnhub/learnhub-go/internal/upload"
)

// ---- auth ----

func cmdSMSSend(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("sms-send", flag.ExitOnError)
	phone := fs.String("phone", "", "phone number")
	_ = fs.Parse(args)
	if *phone == "" {
		fmt.Fprintln(os.Stderr, "need -phone")
		os.Exit(1)
	}
	if err := a.auth.SendSMSCode(ctx, *phone); err != nil {
		fail(err)
	}
	fmt.Println("code sent")
}

func cmdLogin(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	phone := fs.String("phone", "", "phone number")
	code := fs.String("code", "", "SMS code")
	_ = fs.Parse(args)
	if *phone == "" || *code == "" {
		fmt.Fprintln(os.Stderr, "need -phone and -code")
		os.Exit(1)
	}
	user, err := a.auth.VerifySMSCode(ctx, *phone, *code)
	if err != nil {
		fail(err)
	}
	printJSON(user)
}

func cmdExchange(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("exchange", flag.ExitOnError)
	code := fs.String("code", "", "one-time code")
	_ = fs.Parse(args)
	if *code == "" {
		fmt.Fprintln(os.Stderr, "need -code")
		os.Exit(1)
	}
	user, err := a.auth.ExchangeCode(ctx, *code)
	if err != nil {
		fail(err)
	}
	printJSON(user)
}

func cmdGoogle(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("google", flag.ExitOnError)
	idToken := fs.String("id-token", "", "Google ID token")
	_ = fs.Parse(args)
	if *idToken == "" {
		fmt.Fprintln(os.Stderr, "need -id-token")
		os.Exit(1)
	}
	user, err := a.auth.VerifyGoogle(ctx, *idToken)
	if err != nil {
		fail(err)
	}
	printJSON(user)
}

func cmdMe(ctx context.Context, a *app) {
	user, err := a.auth.Me(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(user)
}

func cmdLogout(a *app) {
	if err := a.auth.Logout(); err != nil {
		fail(err)
	}
	fmt.Println("logged out")
}

func cmdRegion(a *app, args []string) {
	fs := flag.NewFlagSet("region", flag.ExitOnError)
	set := fs.String("set", "", "persist region preference (global|cn)")
	_ = fs.Parse(args)
	if *set == "" {
		fmt.Println(a.region)
		return
	}
	if !region.Valid(*set) {
		fmt.Fprintf(os.Stderr, "unknown region %q (want global or cn)\n", *set)
		os.Exit(1)
	}
	if err := a.sess.SetRegion(*set); err != nil {
		fail(err)
	}
	fmt.Println(*set)
}

func cmdLocale(a *app, args []string) {
	fs := flag.NewFlagSet("locale", flag.ExitOnError)
	path := fs.String("path", "", "path to rewrite for the active locale")
	_ = fs.Parse(args)
	if *path != "" {
		fmt.Println(locale.PathWithLocale(*path, a.loc))
		return
	}
	fmt.Println(a.loc)
}

func cmdWorkflows(ctx context.Context, a *app) {
	runs, err := a.flows.List(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(runs)
}

// ---- collections ----

func cmdCollections(ctx context.Context, a *app) {
	list, err := a.cols.List(ctx)
	if err != nil {
		fail(err)
	}
	printJSON(list)
}

func cmdColNew(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("col-new", flag.ExitOnError)
	name := fs.String("name", "", "collection name")
	_ = fs.Parse(args)
	c, err := a.cols.Create(ctx, *name)
	if err != nil {
		fail(err)
	}
	printJSON(c)
}

func cmdColRename(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("col-rename", flag.ExitOnError)
	id := fs.String("id", "", "collection id")
	name := fs.String("name", "", "new name")
	_ = fs.Parse(args)
	c, err := a.cols.Rename(ctx, *id, *name)
	if err != nil {
		fail(err)
	}
	printJSON(c)
}

func cmdColRm(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("col-rm", flag.ExitOnError)
	id := fs.String("id", "", "collection id")
	_ = fs.Parse(args)
	if err := a.cols.Delete(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("deleted")
}

func cmdColProblems(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("col-problems", flag.ExitOnError)
	id := fs.String("id", "", "collection id")
	_ = fs.Parse(args)
	list, err := a.cols.Problems(ctx, *id)
	if err != nil {
		fail(err)
	}
	printJSON(list)
}

func cmdExport(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	id := fs.String("id", "", "collection id")
	wait := fs.Bool("wait", false, "watch the job until it finishes")
	_ = fs.Parse(args)
	jobID, err := a.cols.ExportPDF(ctx, *id)
	if err != nil {
		fail(err)
	}
	if !*wait {
		fmt.Println(jobID)
		return
	}
	watchJob(ctx, a, jobID, func(job *model.Job) {
		a.cols.InvalidateCollection(*id)
	})
}

// ---- problems ----

func cmdProbGet(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("prob-get", flag.ExitOnError)
	id := fs.String("id", "", "problem id")
	_ = fs.Parse(args)
	p, err := a.probs.Get(ctx, *id)
	if err != nil {
		fail(err)
	}
	printJSON(p)
}

func cmdProbAdd(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("prob-add", flag.ExitOnError)
	collection := fs.String("collection", "", "collection id")
	file := fs.String("file", "", "image file ('-'=stdin)")
	index := fs.Int("index", 0, "order index")
	_ = fs.Parse(args)
	if *collection == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "need -collection and -file")
		os.Exit(1)
	}

	data, err := readAll(*file)
	if err != nil {
		fail(err)
	}
	name := filepath.Base(*file)
	if *file == "-" {
		name = "upload.png"
	}

	url, err := a.upload.Upload(ctx, upload.File{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Size:        int64(len(data)),
		Content:     bytes.NewReader(data),
	})
	if err != nil {
		fail(err)
	}

	p, err := a.probs.Create(ctx, learnhub.NewProblem{
		CollectionID:     *collection,
		OriginalImageURL: url,
		OrderIndex:       *index,
	})
	if err != nil {
		fail(err)
	}
	printJSON(p)
}

func cmdProbEdit(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("prob-edit", flag.ExitOnError)
	id := fs.String("id", "", "problem id")
	base := fs.Int64("base", 0, "base version (defaults to the fetched one)")
	note := fs.String("note", "", "note text")
	ocrText := fs.String("ocr", "", "OCR text override")
	tags := fs.String("tags", "", "comma-separated tags")
	index := fs.Int("index", 0, "order index")
	collection := fs.String("collection", "", "move to collection id")
	_ = fs.Parse(args)
	if *id == "" {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}

	cur, err := a.probs.Get(ctx, *id)
	if err != nil {
		fail(err)
	}

	patch := model.ProblemPatch{
		OrderIndex: cur.OrderIndex,
		Version:    cur.Version,
	}
	if *base > 0 {
		patch.Version = *base
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "note":
			patch.Note = note
		case "ocr":
			patch.OCRText = ocrText
		case "tags":
			patch.Tags = strings.Split(*tags, ",")
		case "index":
			patch.OrderIndex = *index
		case "collection":
			patch.CollectionID = collection
		}
	})

	p, err := a.probs.Update(ctx, *id, patch)
	if err != nil {
		fail(err)
	}
	printJSON(p)
}

func cmdProbRm(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("prob-rm", flag.ExitOnError)
	id := fs.String("id", "", "problem id")
	_ = fs.Parse(args)
	if err := a.probs.Delete(ctx, *id); err != nil {
		fail(err)
	}
	fmt.Println("deleted")
}

func cmdOCR(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("ocr", flag.ExitOnError)
	id := fs.String("id", "", "problem id")
	wait := fs.Bool("wait", false, "watch the job until it finishes")
	_ = fs.Parse(args)
	if *id == "" {
		fmt.Fprintln(os.Stderr, "need -id")
		os.Exit(1)
	}

	p, err := a.probs.Get(ctx, *id)
	if err != nil {
		fail(err)
	}
	imageURL := p.CroppedImageURL
	if imageURL == "" {
		imageURL = p.OriginalImageURL
	}

	jobID, err := a.probs.RequestOCR(ctx, *id, imageURL)
	if err != nil {
		fail(err)
	}
	if !*wait {
		fmt.Println(jobID)
		return
	}
	watchJob(ctx, a, jobID, func(job *model.Job) {
		a.probs.InvalidateProblem(*id)
	})
}

// ---- jobs ----

func cmdJob(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("job", flag.ExitOnError)
	id := fs.String("id", "", "job id")
	_ = fs.Parse(args)
	job, err := a.jobs.Status(ctx, *id)
	if err != nil {
		fail(err)
	}
	printJSON(job)
}

func cmdWatch(ctx context.Context, a *app, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	id := fs.String("id", "", "job id")
	_ = fs.Parse(args)
	watchJob(ctx, a, *id, nil)
}

func watchJob(ctx context.Context, a *app, jobID string, onSuccess func(*model.Job)) {
	job, err := a.jobs.Watch(ctx, jobID, onSuccess)
	if err != nil {
		if job != nil {
			printJSON(job)
		}
		fail(err)
	}
	printJSON(job)
}
