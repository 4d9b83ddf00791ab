package main

import (
	"context"
	"os"
	"strings"

	cli "github.com/jawher/mow.cli"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"

	"github.com/ern-cohorts/cohort-ingest/filesource"
	"github.com/ern-cohorts/cohort-ingest/pipeline"
	"github.com/ern-cohorts/cohort-ingest/reconcile"
	"github.com/ern-cohorts/cohort-ingest/repository"
)

func main() {

	app := cli.App("cohort-ingest", "Ingesting and reconciling rare-disease cohort metadata in the central catalog.")

	repositoryURL := app.String(cli.StringOpt{
		Name:   "repositoryUrl",
		Value:  "",
		Desc:   "Base URL of the catalog repository",
		EnvVar: "REPOSITORY_URL",
	})

	repositoryToken := app.String(cli.StringOpt{
		Name:   "repositoryToken",
		Value:  "",
		Desc:   "API token for the catalog repository",
		EnvVar: "REPOSITORY_TOKEN",
	})

	filesBucket := app.String(cli.StringOpt{
		Name:   "filesBucket",
		Value:  "",
		Desc:   "Bucket holding submitter deliveries",
		EnvVar: "FILES_BUCKET",
	})

	filesBasePath := app.String(cli.StringOpt{
		Name:   "filesBasePath",
		Value:  "",
		Desc:   "Base path of submitter deliveries inside the bucket",
		EnvVar: "FILES_BASE_PATH",
	})

	awsRegion := app.String(cli.StringOpt{
		Name:   "awsRegion",
		Value:  "eu-west-1",
		Desc:   "AWS region to connect to",
		EnvVar: "AWS_REGION",
	})

	environment := app.String(cli.StringOpt{
		Name:   "environment",
		Value:  "ACC",
		Desc:   "Run environment (ACC or PROD)",
		EnvVar: "RUN_ENVIRONMENT",
	})

	jobID := app.String(cli.StringOpt{
		Name:   "jobId",
		Value:  "cohort-ingest",
		Desc:   "Job identity used for audit stamping",
		EnvVar: "JOB_ID",
	})

	packetDenyList := app.String(cli.StringOpt{
		Name:   "packetDenyList",
		Value:  "",
		Desc:   "Comma-separated phenotype packet names to skip",
		EnvVar: "PACKET_DENY_LIST",
	})

	sexUnionPolicy := app.String(cli.StringOpt{
		Name:   "sexUnionPolicy",
		Value:  string(reconcile.SexUnionReview),
		Desc:   "Resolution of sex conflicts against a union token: review or prefer-specific",
		EnvVar: "SEX_UNION_POLICY",
	})

	phenotypeReplacePolicy := app.String(cli.StringOpt{
		Name:   "phenotypeReplacePolicy",
		Value:  string(reconcile.PhenotypeReplace),
		Desc:   "Whether a packet re-ingest replaces or preserves catalog phenotype codes: replace or preserve",
		EnvVar: "PHENOTYPE_REPLACE_POLICY",
	})

	app.Action = func() {

		if *environment != "ACC" && *environment != "PROD" {
			log.Fatalf("Unknown run environment %q, want ACC or PROD", *environment)
		}
		if *repositoryURL == "" || *repositoryToken == "" {
			log.Fatal("Repository URL and token must be configured")
		}
		if *filesBucket == "" {
			log.Fatal("Submitter delivery bucket must be configured")
		}

		policy := reconcile.Policy{
			SexUnion:         reconcile.SexUnionPolicy(*sexUnionPolicy),
			PhenotypeReplace: reconcile.PhenotypeReplacePolicy(*phenotypeReplacePolicy),
		}
		if policy.SexUnion != reconcile.SexUnionReview && policy.SexUnion != reconcile.SexUnionPreferSpecific {
			log.Fatalf("Unknown sex union policy %q", *sexUnionPolicy)
		}
		if policy.PhenotypeReplace != reconcile.PhenotypeReplace && policy.PhenotypeReplace != reconcile.PhenotypePreserve {
			log.Fatalf("Unknown phenotype replace policy %q", *phenotypeReplacePolicy)
		}

		repoClient, err := repository.NewClient(*repositoryURL, *repositoryToken)
		if err != nil {
			log.Fatalf("Error creating repository client: %v", err)
		}

		fileClient, err := filesource.NewClient(*filesBucket, *filesBasePath, *awsRegion)
		if err != nil {
			log.Fatalf("Error creating file source client: %v", err)
		}

		var denyList []string
		for _, name := range strings.Split(*packetDenyList, ",") {
			if name = strings.TrimSpace(name); name != "" {
				denyList = append(denyList, name)
			}
		}

		log.WithField("environment", *environment).WithField("jobId", *jobID).Info("Starting run")
		service := pipeline.NewService(repoClient, fileClient, policy, *jobID, denyList)
		cli.Exit(service.Run(context.Background()))
	}

	app.Run(os.Args)
}
