package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"plume/internal/cmdlog"
	"plume/internal/config"
	"plume/internal/feedback"
	"plume/internal/gen"
	"plume/internal/jobs"
	"plume/internal/metrics"
	"plume/internal/model"
	"plume/internal/provider"
	"plume/internal/quota"
	"plume/internal/store/sqlitestore"
	"plume/internal/style"
	"plume/internal/theme"
	"plume/internal/xclient"
)

func main() {
	_ = godotenv.Load()
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stderr)

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	commands := map[string]func() error{
		"init":       cmdInit,
		"import":     cmdImport,
		"generate":   cmdGenerate,
		"variations": cmdVariations,
		"rewrite":    cmdRewrite,
		"thread":     cmdThread,
		"ideas":      cmdIdeas,
		"reply":      func() error { return replyLike("reply") },
		"quote":      func() error { return replyLike("quote") },
		"refine":     cmdRefine,
		"sentiment":  cmdSentiment,
		"predict":    cmdPredict,
		"style":      cmdStyle,
		"rate":       cmdRate,
		"copy":       cmdCopy,
		"stats":      cmdStats,
		"export":     cmdExport,
		"reset":      cmdReset,
		"serve":      cmdServe,
	}
	f, ok := commands[cmd]
	if !ok {
		printHelp()
		return
	}
	if err := cmdlog.Run(cmd, f); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: plume <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./plume.yaml")
	fmt.Println("  import      Import tweets/likes and refresh the style profile")
	fmt.Println("  generate    Generate a tweet from a prompt")
	fmt.Println("  variations  Generate variations of a tweet")
	fmt.Println("  rewrite     Rewrite a tweet in a target tone")
	fmt.Println("  thread      Generate a thread on a topic")
	fmt.Println("  ideas       Generate tweet ideas for a niche")
	fmt.Println("  reply       Generate replies to a tweet")
	fmt.Println("  quote       Generate quote-tweet takes")
	fmt.Println("  refine      Refine an existing suggestion")
	fmt.Println("  sentiment   Analyze sentiment of a text")
	fmt.Println("  predict     Predict engagement for a tweet")
	fmt.Println("  style       Show the stored style profile")
	fmt.Println("  rate        Rate a suggestion good/bad")
	fmt.Println("  copy        Mark a suggestion as copied")
	fmt.Println("  stats       Show feedback stats")
	fmt.Println("  export      Export rated feedback for review")
	fmt.Println("  reset       Reset usage counters")
	fmt.Println("  serve       Run the metrics server and quota reset job")
}

// app bundles the per-process service instances. Every service is explicit,
// constructed once here and passed by reference; no package-level singletons.
type app struct {
	cfg      config.Config
	db       *sqlitestore.DB
	pipeline *gen.Pipeline
	gov      *quota.Governor
	fb       *feedback.Service
	builder  *style.Builder
	importer *jobs.Importer
}

func buildApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}
	builder := style.NewBuilder(cfg.Style)
	return &app{
		cfg:      cfg,
		db:       db,
		pipeline: gen.NewPipeline(provider.NewOpenAIClient(cfg.Provider), cfg.Engagement),
		gov:      quota.NewGovernor(db, &cfg, model.Tier(cfg.Account.Tier)),
		fb:       feedback.NewService(db),
		builder:  builder,
		importer: jobs.NewImporter(db, builder, cfg.Style.CorpusLimit),
	}, nil
}

func (a *app) close() { _ = a.db.Close() }

func (a *app) user(override string) string {
	if override != "" {
		return override
	}
	return a.cfg.Account.Username
}

// loadStyle returns the stored profile pointer, or nil when none exists yet.
func (a *app) loadStyle(ctx context.Context, userID string) *model.StyleProfile {
	p, ok, err := a.db.LoadProfile(ctx, userID)
	if err != nil || !ok {
		return nil
	}
	return &p
}

func cmdInit() error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./plume.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdImport() error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id (defaults to account username)")
	file := fs.String("file", "", "JSON file of scraped items instead of the API")
	limit := fs.Int("limit", 100, "items to fetch per kind")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	uid := a.user(*user)
	var res jobs.ImportResult
	if *file != "" {
		items, err := readItemsFile(*file)
		if err != nil {
			return err
		}
		res, err = a.importer.ImportItems(ctx, uid, items)
		if err != nil {
			return err
		}
	} else {
		client := xclient.NewHTTPClient(a.cfg.Credentials.BearerToken)
		res, err = a.importer.ImportFromAPI(ctx, client, uid, a.cfg.Account.Username, *limit)
		if err != nil {
			return err
		}
	}
	fmt.Printf("Imported %d new items\n", res.Added)
	if res.AlreadyImported {
		fmt.Println("Style profile is fresh; analysis skipped (cooldown)")
	}
	if res.HasProfile {
		printProfile(res.Profile)
	} else {
		fmt.Println("No style profile yet (not enough data or analysis failed)")
	}
	return nil
}

func readItemsFile(path string) ([]model.ImportedItem, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []struct {
		ID        string    `json:"id"`
		Kind      string    `json:"kind"`
		Content   string    `json:"content"`
		Author    string    `json:"author"`
		Likes     int       `json:"likes"`
		Reposts   int       `json:"reposts"`
		Replies   int       `json:"replies"`
		CreatedAt time.Time `json:"createdAt"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	items := make([]model.ImportedItem, 0, len(raw))
	for _, r := range raw {
		kind := r.Kind
		if kind == "" {
			kind = jobs.KindPost
		}
		items = append(items, model.ImportedItem{
			SourceID: r.ID, Kind: kind, Content: r.Content, Author: r.Author,
			Likes: r.Likes, Reposts: r.Reposts, Replies: r.Replies,
			CreatedAt: r.CreatedAt, ImportedAt: now,
		})
	}
	return items, nil
}

func cmdGenerate() error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	prompt := fs.String("prompt", "", "what to tweet about")
	tone := fs.String("tone", "", "tone (professional|casual|friendly|authoritative|humorous)")
	creativity := fs.Float64("creativity", -1, "creativity 0-1")
	exContext := fs.String("context", "", "extra guidance")
	useStyle := fs.Bool("style", true, "bias generation with the stored style profile")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	uid := a.user(*user)
	var sug model.Suggestion
	err = a.gov.Gated(ctx, uid, model.FeatureGeneration, func() error {
		params := gen.TweetParams{Prompt: *prompt, Tone: model.Tone(*tone), Creativity: *creativity, Context: *exContext}
		if *useStyle {
			params.Style = a.loadStyle(ctx, uid)
		}
		var err error
		sug, err = a.pipeline.GenerateTweet(ctx, params)
		return err
	})
	if err != nil {
		return err
	}
	printSuggestion(sug)
	return nil
}

func cmdVariations() error {
	fs := flag.NewFlagSet("variations", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	tweet := fs.String("tweet", "", "tweet to vary")
	count := fs.Int("count", 3, "how many variations")
	tone := fs.String("tone", "", "tone")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	var out []string
	err = a.gov.Gated(ctx, a.user(*user), model.FeatureGeneration, func() error {
		var err error
		out, err = a.pipeline.GenerateVariations(ctx, *tweet, *count, model.Tone(*tone))
		return err
	})
	if err != nil {
		return err
	}
	printList(out)
	return nil
}

func cmdRewrite() error {
	fs := flag.NewFlagSet("rewrite", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	tweet := fs.String("tweet", "", "tweet to rewrite")
	tone := fs.String("tone", "", "target tone")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	var sug model.Suggestion
	err = a.gov.Gated(ctx, a.user(*user), model.FeatureGeneration, func() error {
		var err error
		sug, err = a.pipeline.RewriteTweet(ctx, *tweet, model.Tone(*tone))
		return err
	})
	if err != nil {
		return err
	}
	printSuggestion(sug)
	return nil
}

func cmdThread() error {
	fs := flag.NewFlagSet("thread", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	topic := fs.String("topic", "", "thread topic")
	length := fs.Int("length", 5, "posts in the thread")
	tone := fs.String("tone", "", "tone")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	var parts []model.ThreadPart
	err = a.gov.Gated(ctx, a.user(*user), model.FeatureGeneration, func() error {
		var err error
		parts, err = a.pipeline.GenerateThread(ctx, *topic, *length, model.Tone(*tone))
		return err
	})
	if err != nil {
		return err
	}
	for _, p := range parts {
		fmt.Printf("%d/%d %s\n", p.Order, len(parts), p.Content)
	}
	return nil
}

func cmdIdeas() error {
	fs := flag.NewFlagSet("ideas", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	niche := fs.String("niche", "", "account niche")
	count := fs.Int("count", 5, "how many ideas")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	var out []string
	err = a.gov.Gated(ctx, a.user(*user), model.FeatureGeneration, func() error {
		var err error
		out, err = a.pipeline.GenerateIdeas(ctx, *niche, *count)
		return err
	})
	if err != nil {
		return err
	}
	printList(out)
	return nil
}

func replyLike(kind string) error {
	fs := flag.NewFlagSet(kind, flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	tweet := fs.String("tweet", "", "tweet text to respond to")
	image := fs.String("image", "", "screenshot URL instead of text")
	count := fs.Int("count", 3, "how many options")
	guidance := fs.String("guidance", "", "extra guidance")
	useStyle := fs.Bool("style", true, "bias with the stored style profile")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	uid := a.user(*user)
	params := gen.ReplyParams{TweetText: *tweet, ImageURL: *image, Count: *count, Guidance: *guidance}
	if *useStyle {
		params.Style = a.loadStyle(ctx, uid)
	}
	var out []model.Suggestion
	err = a.gov.Gated(ctx, uid, model.FeatureGeneration, func() error {
		var err error
		if kind == "quote" {
			out, err = a.pipeline.GenerateQuotes(ctx, params)
		} else {
			out, err = a.pipeline.GenerateReplies(ctx, params)
		}
		return err
	})
	if err != nil {
		return err
	}
	for _, s := range out {
		printSuggestion(s)
		fmt.Println("---")
	}
	return nil
}

func cmdRefine() error {
	fs := flag.NewFlagSet("refine", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	original := fs.String("original", "", "suggestion to refine")
	typ := fs.String("type", "shorter", "refinement (shorter|funnier|professional|casual|add_question|spicier|custom)")
	instruction := fs.String("instruction", "", "custom instruction when -type=custom")
	exContext := fs.String("context", "", "extra context")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	var sug model.Suggestion
	err = a.gov.Gated(ctx, a.user(*user), model.FeatureGeneration, func() error {
		var err error
		sug, err = a.pipeline.RefineSuggestion(ctx, gen.RefineParams{
			Original: *original, Type: *typ, Instruction: *instruction, Context: *exContext,
		})
		return err
	})
	if err != nil {
		return err
	}
	printSuggestion(sug)
	return nil
}

func cmdSentiment() error {
	fs := flag.NewFlagSet("sentiment", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	text := fs.String("text", "", "text to analyze")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	var s model.Sentiment
	err = a.gov.Gated(ctx, a.user(*user), model.FeatureGeneration, func() error {
		var err error
		s, err = a.pipeline.AnalyzeSentiment(ctx, *text)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Printf("score=%.2f label=%s\n", s.Score, s.Label)
	return nil
}

func cmdPredict() error {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	text := fs.String("text", "", "tweet text")
	media := fs.Bool("media", false, "has attached media")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	score, cat := a.pipeline.PredictEngagement(*text, *media)
	fmt.Printf("score=%d category=%s\n", score, cat)
	return nil
}

func cmdStyle() error {
	fs := flag.NewFlagSet("style", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	p, ok, err := a.db.LoadProfile(context.Background(), a.user(*user))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("No style profile yet; run import first")
		return nil
	}
	printProfile(p)
	return nil
}

func cmdRate() error {
	fs := flag.NewFlagSet("rate", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	typ := fs.String("type", "styled_tweet", "feedback type (reply|quote|styled_tweet)")
	output := fs.String("output", "", "the suggestion text")
	sid := fs.String("id", "", "suggestion id, if known")
	input := fs.String("input", "", "the input the suggestion was generated from")
	good := fs.Bool("good", false, "rate as good")
	bad := fs.Bool("bad", false, "rate as bad")
	_ = fs.Parse(os.Args[2:])
	if *good == *bad {
		return fmt.Errorf("pass exactly one of -good or -bad")
	}
	rating := 1
	if *bad {
		rating = -1
	}
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	uid := a.user(*user)
	snap := styleSnapshot(a.loadStyle(ctx, uid))
	rec, err := a.fb.RecordRating(ctx, uid, model.FeedbackType(*typ),
		feedback.Input{Text: *input}, *output, *sid, rating, snap, a.cfg.Provider.Model)
	if err != nil {
		return err
	}
	fmt.Printf("Stored rating: %+d (first rating wins)\n", rec.Rating)
	return nil
}

func cmdCopy() error {
	fs := flag.NewFlagSet("copy", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	typ := fs.String("type", "styled_tweet", "feedback type (reply|quote|styled_tweet)")
	output := fs.String("output", "", "the suggestion text")
	sid := fs.String("id", "", "suggestion id, if known")
	input := fs.String("input", "", "the input the suggestion was generated from")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	uid := a.user(*user)
	snap := styleSnapshot(a.loadStyle(ctx, uid))
	if _, err := a.fb.RecordCopy(ctx, uid, model.FeedbackType(*typ),
		feedback.Input{Text: *input}, *output, *sid, snap, a.cfg.Provider.Model); err != nil {
		return err
	}
	fmt.Println("Marked as copied")
	return nil
}

func cmdStats() error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	user := fs.String("user", "", "user id")
	all := fs.Bool("all", false, "aggregate across all users")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := context.Background()
	uid := a.user(*user)
	scope := uid
	if *all {
		scope = ""
	}
	var stats map[model.FeedbackType]model.FeedbackStats
	err = a.gov.Gated(ctx, uid, model.FeatureAnalytics, func() error {
		var err error
		stats, err = a.fb.Stats(ctx, scope)
		return err
	})
	if err != nil {
		return err
	}
	for _, typ := range model.FeedbackTypes {
		s := stats[typ]
		fmt.Printf("%-13s total=%d good=%d bad=%d copied=%d\n", typ, s.Total, s.Positive, s.Negative, s.Copied)
	}
	return nil
}

func cmdExport() error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	minRating := fs.Int("min-rating", 1, "minimum rating to include")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	recs, err := a.fb.ExportTrainingData(context.Background(), *minRating)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range recs {
		_ = enc.Encode(map[string]any{
			"type":   r.Type,
			"input":  map[string]any{"text": r.InputText, "hasImage": r.InputImage},
			"output": r.Output,
			"rating": r.Rating,
			"copied": r.WasCopied,
			"style":  map[string]any{"tone": r.Style.Tone, "topics": r.Style.Topics},
			"model":  r.Model,
		})
	}
	return nil
}

func cmdReset() error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.gov.Reset(context.Background()); err != nil {
		return err
	}
	fmt.Println("Usage counters reset")
	return nil
}

func cmdServe() error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "./plume.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	a, err := buildApp(*cfgPath)
	if err != nil {
		return err
	}
	defer a.close()
	metrics.StartServer(a.cfg.Metrics.Addr)
	c, err := jobs.StartResetJob(a.cfg.Reset.Cron, a.gov)
	if err != nil {
		return err
	}
	defer c.Stop()
	theme.PrintBanner()
	fmt.Println("Serving metrics on", a.cfg.Metrics.Addr, "- quota reset:", a.cfg.Reset.Cron)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}

func printList(items []string) {
	for i, v := range items {
		fmt.Printf("%d. %s\n", i+1, v)
	}
}

func printSuggestion(s model.Suggestion) {
	fmt.Println(s.Content)
	fmt.Printf("id=%s model=%s\n", s.ID, s.Model)
}

func printProfile(p model.StyleProfile) {
	fmt.Println("Style profile:")
	fmt.Printf("  tone=%s emoji=%s hashtags=%s avgLength=%d\n", p.Tone, p.EmojiUsage, p.HashtagStyle, p.AvgLength)
	fmt.Printf("  topics=%v\n", p.Topics)
	fmt.Printf("  analyzedAt=%s\n", p.AnalyzedAt.Format(time.RFC3339))
}

func styleSnapshot(p *model.StyleProfile) model.StyleSnapshot {
	if p == nil {
		return model.StyleSnapshot{}
	}
	return model.StyleSnapshot{Tone: p.Tone, Topics: p.Topics}
}
