package deck

import (
	"context"
	"path/filepath"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/editor"
	"bitbucket.org/airenas/slidego/internal/pkg/events"
	"bitbucket.org/airenas/slidego/internal/pkg/images"
	"bitbucket.org/airenas/slidego/internal/pkg/llm"
	"bitbucket.org/airenas/slidego/internal/pkg/metrics"
	"bitbucket.org/airenas/slidego/internal/pkg/mongo"
	"bitbucket.org/airenas/slidego/internal/pkg/orchestrator"
	"bitbucket.org/airenas/slidego/internal/pkg/pptx"
	"bitbucket.org/airenas/slidego/internal/pkg/rabbit"
	"bitbucket.org/airenas/slidego/internal/pkg/render"
	"bitbucket.org/airenas/slidego/internal/pkg/saver"
	"bitbucket.org/airenas/slidego/internal/pkg/stage"
	"bitbucket.org/airenas/slidego/internal/pkg/store"
	"bitbucket.org/airenas/slidego/internal/pkg/transcriber"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/heptiolabs/healthcheck"
)

var rootCmd = &cobra.Command{
	Use:   "deckService",
	Short: "Voice to deck generation service",
	Long:  `HTTP server to turn uploaded audio into themed presentation decks`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.LogIf(cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port")))
	cmdapp.Config.SetDefault("port", 8000)
	cmdapp.Config.SetDefault("storage.dir", "/data/slidego/")
	cmdapp.Config.SetDefault("render.workers", 2)
	cmdapp.Config.SetDefault("retry.count", 3)
	cmdapp.Config.SetDefault("pool.transcription", 2)
	cmdapp.Config.SetDefault("pool.analysis", 4)
	cmdapp.Config.SetDefault("pool.render", 1)
}

// Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting deckService")
	data := &ServiceData{}
	err := initMetrics(data)
	cmdapp.CheckOrPanic(err, "Can't init metrics")

	data.health = healthcheck.NewHandler()
	storageDir := cmdapp.Config.GetString("storage.dir")

	fs, err := saver.NewLocalFileSaver(filepath.Join(storageDir, "uploads"))
	cmdapp.CheckOrPanic(err, "Can't init file storage")
	data.FileSaver = fs
	data.health.AddLivenessCheck("fs", fs.HealthyFunc())

	var jobStore store.Store
	if cmdapp.Config.GetString("mongo.url") != "" {
		mongoSessionProvider, err := mongo.NewSessionProvider()
		cmdapp.CheckOrPanic(err, "Can't init mongo")
		defer mongoSessionProvider.Close()
		data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))
		jobStore, err = mongo.NewJobStore(mongoSessionProvider)
		cmdapp.CheckOrPanic(err, "Can't init job store")
	} else {
		cmdapp.Log.Info("No mongo.url set, using in-memory job store")
		jobStore = store.NewMemory()
	}

	data.Bus = events.NewBus()
	sinks := events.Sinks{data.Bus}
	if cmdapp.Config.GetString("rabbit.url") != "" {
		msgChannelProvider, err := rabbit.NewChannelProvider()
		cmdapp.CheckOrPanic(err, "Can't init rabbit channel")
		defer msgChannelProvider.Close()
		data.health.AddLivenessCheck("rabbit", healthcheck.Async(msgChannelProvider.Healthy, 10*time.Second))
		sinks = append(sinks, events.NewForwardSink(rabbit.NewPublisher(msgChannelProvider), "JobStatus"))
	}

	trans, err := transcriber.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init transcriber client")
	llmClient, err := llm.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init llm client")
	analyzer, err := llm.NewAnalyzer(llmClient)
	cmdapp.CheckOrPanic(err, "Can't init analyzer")
	structEditor, err := editor.NewEditor(llmClient)
	cmdapp.CheckOrPanic(err, "Can't init editor")
	imgClient, err := images.NewClient()
	cmdapp.CheckOrPanic(err, "Can't init image client")
	htmlMaker, err := render.NewHTMLMaker(llmClient)
	cmdapp.CheckOrPanic(err, "Can't init html maker")
	renderer, err := render.NewRenderer(htmlMaker, render.NewChromeRenderer(),
		filepath.Join(storageDir, "workspace"), cmdapp.Config.GetInt("render.workers"))
	cmdapp.CheckOrPanic(err, "Can't init renderer")
	deckWriter, err := pptx.NewWriter(filepath.Join(storageDir, "outputs"))
	cmdapp.CheckOrPanic(err, "Can't init deck writer")

	orch, err := orchestrator.New(&orchestrator.Data{
		Store:             jobStore,
		Events:            sinks,
		Transcriber:       trans,
		Analyzer:          analyzer,
		Images:            imgClient,
		Renderer:          renderer,
		Writer:            deckWriter,
		Editor:            structEditor,
		BackOff:           stage.NewExpBackOffProvider(uint64(cmdapp.Config.GetInt("retry.count"))),
		TranscriptionPool: cmdapp.Config.GetInt64("pool.transcription"),
		AnalysisPool:      cmdapp.Config.GetInt64("pool.analysis"),
		RenderPool:        cmdapp.Config.GetInt64("pool.render"),
	})
	cmdapp.CheckOrPanic(err, "Can't init orchestrator")
	data.Pipeline = orch

	err = orch.Resume(context.Background())
	cmdapp.CheckOrPanic(err, "Can't resume jobs")

	data.Port = cmdapp.Config.GetInt("port")
	err = StartWebServer(data)
	cmdapp.CheckOrPanic(err, "Can't start web server")
}

func initMetrics(data *ServiceData) error {
	namespace := "deck_service"
	data.metrics.generateResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_request_durations_seconds",
			Help:      "Generate request latency distributions.",
		}, nil)
	err := metrics.Register(data.metrics.generateResponseDur)
	if err != nil {
		return err
	}
	data.metrics.generateRequestSize = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      "generate_request_size_bytes",
			Help:      "Generate request size in bytes."}, nil)
	err = metrics.Register(data.metrics.generateRequestSize)
	if err != nil {
		return err
	}
	data.metrics.jobResponseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_request_durations_seconds",
			Help:      "Job status request latency distributions.",
		}, nil)
	return metrics.Register(data.metrics.jobResponseDur)
}
