package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/MaiRajborirug/SPORF"
	"github.com/MaiRajborirug/SPORF/config"
	"github.com/MaiRajborirug/SPORF/config/yaml"
	"github.com/MaiRajborirug/SPORF/dataset"
	"github.com/MaiRajborirug/SPORF/dataset/mongodataset"
	"github.com/MaiRajborirug/SPORF/dataset/sqldataset"
	"github.com/MaiRajborirug/SPORF/dataset/sqldataset/pgadapter"
	"github.com/MaiRajborirug/SPORF/dataset/sqldataset/sqlite3adapter"
	"github.com/MaiRajborirug/SPORF/forest"
	"github.com/MaiRajborirug/SPORF/forest/redisstore"
	"github.com/MaiRajborirug/SPORF/queue"
	"github.com/MaiRajborirug/SPORF/queue/redisq"
	"github.com/davecheney/profile"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	mgo "gopkg.in/mgo.v2"
	redis "gopkg.in/redis.v5"
)

type growCmdConfig struct {
	*rootCmdConfig
	dataInput   string
	labelColumn int
	labelName   string
	table       string
	optionsFile string
	output      string
	maxDBConns  int
	redisQueue  string
	redisStore  string
	redisPrefix string
	joinQueue   bool
	cpuProfile  bool
	ctx         context.Context
	cancelFunc  context.CancelFunc
}

func growCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &growCmdConfig{rootCmdConfig: rootConfig}
	var trees, cores, mtry, maxDepth, minParent int
	var seed int64
	var forestType string
	cmd := &cobra.Command{
		Use:   "grow",
		Short: "Grow a randomized decision forest from a set of data",
		Long:  `Grow a randomized decision forest from a labeled set of data, using axis-aligned, sparse oblique or structured image-patch splits.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if config.cpuProfile {
				defer profile.Start(profile.CPUProfile).Stop()
			}
			cfg, err := config.trainingConfig(cmd)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			if cfg.ForestTypeWarning {
				config.Logf("Unknown forest type %q, assuming rfBase behavior", cfg.ForestTypeName)
			}
			ds, err := config.trainingData()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Growing %d trees from a set with %d samples, %d features and %d classes...",
				cfg.NumTrees, ds.Count(), ds.NumFeatures(), ds.NumClasses())
			f, err := config.grow(ds, cfg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "growing the forest: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Done")
			if f == nil {
				return
			}
			err = outputForest(config.output, f)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL or MongoDB connection URL with data to use to grow the forest (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().IntVarP(&(config.labelColumn), "label-column", "c", -1, "index of the column with the class labels on CSV input (required for CSV input)")
	cmd.PersistentFlags().StringVar(&(config.labelName), "label", "label", "name of the column or document field with the class labels on database input")
	cmd.PersistentFlags().StringVarP(&(config.table), "table", "t", "samples", "table or collection with the training data on database input")
	cmd.PersistentFlags().StringVar(&(config.optionsFile), "options", "", "path to a YML file with training options")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a file to which the grown forest will be written in JSON format (defaults to STDOUT)")
	cmd.PersistentFlags().IntVar(&(config.maxDBConns), "max-db-conns", 0, "limit to DB connections opened at a time (defaults to 0: no limit)")
	cmd.PersistentFlags().StringVar(&(config.redisQueue), "redis-queue", "", "address of a redis server to queue growth tasks on, so several processes can grow the forest together (defaults to an in-memory queue)")
	cmd.PersistentFlags().StringVar(&(config.redisStore), "redis-store", "", "address of a redis server to store grown trees on (defaults to an in-memory store, required with redis-queue)")
	cmd.PersistentFlags().StringVar(&(config.redisPrefix), "redis-prefix", "sporf", "prefix for the keys of queued tasks and stored trees on redis")
	cmd.PersistentFlags().BoolVar(&(config.joinQueue), "join", false, "join a growth already seeded on the redis queue by another process: grow trees until the queue drains and store them without collecting the forest")
	cmd.PersistentFlags().BoolVar(&(config.cpuProfile), "profile", false, "write a CPU profile of the growth")
	cmd.PersistentFlags().IntVar(&trees, "trees", 0, "number of trees to grow (overrides the numTreesInForest option)")
	cmd.PersistentFlags().IntVar(&cores, "cores", 0, "number of parallel workers (overrides the numCores option)")
	cmd.PersistentFlags().IntVar(&mtry, "mtry", 0, "number of candidate splits per node (overrides the mtry option)")
	cmd.PersistentFlags().IntVar(&maxDepth, "max-depth", 0, "maximum tree depth, 0 for unlimited (overrides the maxDepth option)")
	cmd.PersistentFlags().IntVar(&minParent, "min-parent", 0, "minimum node size to keep splitting (overrides the minParent option)")
	cmd.PersistentFlags().Int64Var(&seed, "seed", 0, "seed for the forest's random streams (overrides the seed option)")
	cmd.PersistentFlags().StringVar(&forestType, "forest-type", "", "forest variant: rfBase, binnedBase, rerf, rerfTernary or S-RerF (overrides the forestType option)")
	return cmd
}

func (gcc *growCmdConfig) Validate() error {
	if gcc.redisQueue != "" && gcc.redisStore == "" {
		return fmt.Errorf("redis-store flag is required when redis-queue is set")
	}
	if gcc.joinQueue && gcc.redisQueue == "" {
		return fmt.Errorf("join flag requires the redis-queue flag")
	}
	if gcc.dataInput == "" || strings.HasSuffix(gcc.dataInput, ".csv") {
		if gcc.labelColumn < 0 {
			return fmt.Errorf("required label-column flag was not set")
		}
	}
	return nil
}

/*
trainingConfig builds the training configuration from the options
file, if any, with any override flags that were explicitly set on the
command applied on top.
*/
func (gcc *growCmdConfig) trainingConfig(cmd *cobra.Command) (*config.Config, error) {
	var store *config.Store
	var err error
	if gcc.optionsFile != "" {
		gcc.Logf("Reading training options from %s...", gcc.optionsFile)
		store, err = yaml.ReadOptionsFromFile(gcc.optionsFile)
		if err != nil {
			return nil, err
		}
	} else {
		store = config.NewStore()
	}
	overrides := map[string]string{
		"trees":       "numTreesInForest",
		"cores":       "numCores",
		"mtry":        "mtry",
		"max-depth":   "maxDepth",
		"min-parent":  "minParent",
		"seed":        "seed",
		"forest-type": "forestType",
	}
	for flag, setting := range overrides {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		if setting == "forestType" {
			v, _ := cmd.Flags().GetString(flag)
			store.Set(setting, config.StringValue(v))
			continue
		}
		if setting == "seed" {
			v, _ := cmd.Flags().GetInt64(flag)
			store.Set(setting, config.IntValue(v))
			continue
		}
		v, _ := cmd.Flags().GetInt(flag)
		store.Set(setting, config.IntValue(int64(v)))
	}
	return config.New(store)
}

func (gcc *growCmdConfig) trainingData() (*dataset.Dataset, error) {
	var f *os.File
	if gcc.dataInput == "" {
		gcc.Logf("Reading training data from STDIN...")
		f = os.Stdin
	} else {
		if strings.HasPrefix(gcc.dataInput, "postgresql://") {
			return gcc.postgreSQLTrainingData()
		}
		if strings.HasPrefix(gcc.dataInput, "mongodb://") {
			return gcc.mongoDBTrainingData()
		}
		if strings.HasSuffix(gcc.dataInput, ".db") {
			return gcc.sqlite3TrainingData()
		}
		gcc.Logf("Opening %s to read training data...", gcc.dataInput)
		return dataset.ReadCSVFile(gcc.dataInput, gcc.labelColumn)
	}
	ds, err := dataset.ReadCSV(f, gcc.labelColumn)
	if err != nil {
		return nil, fmt.Errorf("reading training data: %v", err)
	}
	return ds, nil
}

func (gcc *growCmdConfig) sqlite3TrainingData() (*dataset.Dataset, error) {
	gcc.Logf("Creating SQLite3 adapter for file %s to read training data...", gcc.dataInput)
	adapter, err := sqlite3adapter.New(gcc.dataInput, gcc.maxDBConns)
	if err != nil {
		return nil, err
	}
	gcc.Logf("Reading training data over SQLite3 adapter for file %s...", gcc.dataInput)
	return sqldataset.Read(gcc.Context(), adapter, gcc.table, gcc.labelName)
}

func (gcc *growCmdConfig) postgreSQLTrainingData() (*dataset.Dataset, error) {
	gcc.Logf("Creating PostgreSQL adapter for url %s to read training data...", gcc.dataInput)
	adapter, err := pgadapter.New(gcc.dataInput)
	if err != nil {
		return nil, err
	}
	gcc.Logf("Reading training data over PostgreSQL adapter for url %s...", gcc.dataInput)
	return sqldataset.Read(gcc.Context(), adapter, gcc.table, gcc.labelName)
}

func (gcc *growCmdConfig) mongoDBTrainingData() (*dataset.Dataset, error) {
	gcc.Logf("Dialing MongoDB at %s to read training data...", gcc.dataInput)
	info, err := mgo.ParseURL(gcc.dataInput)
	if err != nil {
		return nil, fmt.Errorf("parsing MongoDB url %s: %v", gcc.dataInput, err)
	}
	if info.Database == "" {
		return nil, fmt.Errorf("MongoDB url %s does not name a database", gcc.dataInput)
	}
	session, err := mgo.DialWithInfo(info)
	if err != nil {
		return nil, fmt.Errorf("dialing MongoDB at %s: %v", gcc.dataInput, err)
	}
	defer session.Close()
	gcc.Logf("Reading training data from MongoDB collection %s.%s...", info.Database, gcc.table)
	return mongodataset.Read(gcc.Context(), session, info.Database, gcc.table)
}

/*
grow runs the forest growth over the configured queue and tree
store. Without redis flags it grows in-process. With them, growth
tasks and grown trees go through redis so cooperating processes can
share the work; a process started with the join flag only consumes
tasks and returns a nil forest.
*/
func (gcc *growCmdConfig) grow(ds *dataset.Dataset, cfg *config.Config) (*forest.Forest, error) {
	ctx := gcc.Context()
	if gcc.redisQueue == "" {
		return sporf.GrowForest(ctx, ds, cfg)
	}
	if err := sporf.Check(ds, cfg); err != nil {
		return nil, err
	}
	// distinct key namespaces, in case queue and store share a server
	q := redisq.New(gcc.redisPrefix+":queue", redis.NewClient(&redis.Options{Addr: gcc.redisQueue}), redisq.NewJSONEncodeDecoder())
	ts := redisstore.New(redis.NewClient(&redis.Options{Addr: gcc.redisStore}), gcc.redisPrefix+":trees", redisstore.NewJSONTreeEncodeDecoder())
	defer ts.Close(ctx)
	if !gcc.joinQueue {
		gcc.Logf("Seeding %d growth tasks on redis queue at %s...", cfg.NumTrees, gcc.redisQueue)
		if err := sporf.Seed(ctx, cfg, q); err != nil {
			return nil, err
		}
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.NumCores; i++ {
		g.Go(func() error {
			return sporf.Work(gctx, ds, cfg, q, ts)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if gcc.joinQueue {
		return nil, nil
	}
	// tasks pulled by other processes may still be running
	if err := queue.WaitFor(ctx, q); err != nil {
		return nil, err
	}
	return forest.Collect(ctx, ts, cfg.NumTrees, ds.NumFeatures(), ds.Classes)
}

func (gcc *growCmdConfig) Context() context.Context {
	gcc.setContextAndCancelFunc()
	return gcc.ctx
}

func (gcc *growCmdConfig) setContextAndCancelFunc() {
	if gcc.ctx == nil {
		gcc.ctx, gcc.cancelFunc = context.WithCancel(context.Background())
	}
}

func outputForest(outputPath string, f *forest.Forest) error {
	var file *os.File
	var err error
	if outputPath == "" {
		file = os.Stdout
	} else {
		file, err = os.Create(outputPath)
		if err != nil {
			return err
		}
	}
	defer file.Close()
	return forest.WriteJSON(file, f)
}
