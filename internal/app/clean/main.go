package clean

import (
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/metrics"
	"bitbucket.org/airenas/slidego/internal/pkg/mongo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/heptiolabs/healthcheck"
)

var appName = "Deck Data Clean Service"

var rootCmd = &cobra.Command{
	Use:   "cleanService",
	Short: appName,
	Long:  `Service to drop expired deck generation jobs and their files`,
	Run:   run,
}

func init() {
	cmdapp.InitApplication(rootCmd)
	rootCmd.PersistentFlags().Int32P("port", "", 8000, "Default service port")
	cmdapp.LogIf(cmdapp.Config.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port")))
	cmdapp.Config.SetDefault("port", 8080)
	cmdapp.Config.SetDefault("storage.dir", "/data/slidego/")
	cmdapp.Config.SetDefault("clean.expire", 168*time.Hour)
	cmdapp.Config.SetDefault("clean.runEvery", 10*time.Minute)
}

// Execute starts the server
func Execute() {
	cmdapp.Execute(rootCmd)
}

func run(cmd *cobra.Command, args []string) {
	cmdapp.Log.Info("Starting " + appName)

	data := &ServiceData{}
	err := initMetrics(data)
	cmdapp.CheckOrPanic(err, "Can't init metrics")
	data.health = healthcheck.NewHandler()
	data.Port = cmdapp.Config.GetInt("port")

	mongoSessionProvider, err := mongo.NewSessionProvider()
	cmdapp.CheckOrPanic(err, "Can't init mongo")
	defer mongoSessionProvider.Close()
	data.health.AddLivenessCheck("mongo", healthcheck.Async(mongoSessionProvider.Healthy, 10*time.Second))

	jobStore, err := mongo.NewJobStore(mongoSessionProvider)
	cmdapp.CheckOrPanic(err, "Can't init job store")

	data.cleaner, err = newCleanerImpl(jobStore, cmdapp.Config.GetString("storage.dir"))
	cmdapp.CheckOrPanic(err, "Can't init cleaner")

	idsProvider, err := mongo.NewCleanIDsProvider(mongoSessionProvider,
		cmdapp.Config.GetDuration("clean.expire"))
	cmdapp.CheckOrPanic(err, "Can't init ids provider")

	tData := &timerServiceData{runEvery: cmdapp.Config.GetDuration("clean.runEvery"),
		cleaner: data.cleaner, idsProvider: idsProvider,
		qChan: make(chan struct{}), workWaitChan: make(chan struct{})}
	err = startCleanTimer(tData)
	cmdapp.CheckOrPanic(err, "Can't start timer")

	err = StartWebServer(data)
	close(tData.qChan)
	<-tData.workWaitChan
	cmdapp.CheckOrPanic(err, "")
}

func initMetrics(data *ServiceData) error {
	data.metrics.responseDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clean_service",
			Name:      "request_durations_seconds",
			Help:      "Request latency distributions.",
		}, nil)
	return metrics.Register(data.metrics.responseDur)
}
