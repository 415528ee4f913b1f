package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-specid/candidate"
	"github.com/cwbudde/algo-specid/feature"
	"github.com/cwbudde/algo-specid/identify"
	"github.com/cwbudde/algo-specid/report"
	"github.com/cwbudde/algo-specid/rubric"
	"github.com/cwbudde/algo-specid/template"
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Run the identification pipeline and emit a run document",
	RunE:  runIdentify,
}

func init() {
	identifyCmd.Flags().String("rubric", "", "rubric YAML file (required)")
	identifyCmd.Flags().String("features", "", "extracted features YAML file (required)")
	identifyCmd.Flags().String("catalog", "", "candidate catalog YAML file (required)")
	identifyCmd.Flags().String("templates", "", "reference template YAML file (required)")
	identifyCmd.Flags().String("gates", "", "context gates YAML file")
	identifyCmd.Flags().String("segments", "", "observed spectrum segments YAML file (dense modalities)")
	identifyCmd.Flags().String("session", "", "session identifier")
	identifyCmd.Flags().String("dataset", "", "dataset identifier")
	identifyCmd.Flags().Int64("seed", 0, "run seed, recorded in the output document")
	identifyCmd.Flags().Int("workers", 0, "worker pool size (0 = number of CPUs)")
	identifyCmd.Flags().StringP("out", "o", "", "output file (default stdout)")
	identifyCmd.Flags().String("format", "json", "output format (json|snapshot)")

	for _, f := range []string{"rubric", "features", "catalog", "templates"} {
		_ = identifyCmd.MarkFlagRequired(f)
	}
}

// featuresFile is the on-disk layout of an extracted-features document.
type featuresFile struct {
	Features []feature.Feature `yaml:"features"`
	QC       []feature.QC      `yaml:"qc,omitempty"`
}

// templatesFile is the on-disk layout of a reference template document.
type templatesFile struct {
	Expectations []struct {
		Label                   string `yaml:"label"`
		template.ExpectationSet `yaml:",inline"`
	} `yaml:"expectations,omitempty"`
	Dense []struct {
		Label          string `yaml:"label"`
		template.Dense `yaml:",inline"`
	} `yaml:"dense,omitempty"`
}

func runIdentify(cmd *cobra.Command, args []string) error {
	logger := cliLogger(cmd)

	rubricPath, _ := cmd.Flags().GetString("rubric")
	r, err := rubric.Load(rubricPath)
	if err != nil {
		return err
	}

	var ff featuresFile
	if err := loadYAML(cmd, "features", &ff); err != nil {
		return err
	}
	set, err := feature.NewSet(ff.Features, ff.QC)
	if err != nil {
		return err
	}

	var catalog candidate.Catalog
	if err := loadYAML(cmd, "catalog", &catalog); err != nil {
		return err
	}
	if err := catalog.Validate(); err != nil {
		return err
	}

	var gates candidate.Gates
	if path, _ := cmd.Flags().GetString("gates"); path != "" {
		if err := loadYAML(cmd, "gates", &gates); err != nil {
			return err
		}
	}

	lib, err := loadTemplates(cmd)
	if err != nil {
		return err
	}

	segments, err := loadSegments(cmd)
	if err != nil {
		return err
	}

	session, _ := cmd.Flags().GetString("session")
	dataset, _ := cmd.Flags().GetString("dataset")
	seed, _ := cmd.Flags().GetInt64("seed")
	workers, _ := cmd.Flags().GetInt("workers")

	opts := []identify.Option{identify.WithLogger(logger)}
	if workers > 0 {
		opts = append(opts, identify.WithWorkers(workers))
	}

	res, err := identify.Identify(cmd.Context(), identify.Input{
		Session:   session,
		Dataset:   dataset,
		Features:  set,
		Segments:  segments,
		Catalog:   &catalog,
		Gates:     gates,
		Templates: lib,
		Rubric:    r,
		Seed:      seed,
	}, opts...)
	if err != nil {
		return err
	}

	doc := report.NewDocument(res, lib.Versions())
	return writeDocument(cmd, doc)
}

func loadYAML(cmd *cobra.Command, flag string, out any) error {
	path, _ := cmd.Flags().GetString(flag)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", flag, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", flag, path, err)
	}
	return nil
}

func loadTemplates(cmd *cobra.Command) (*template.Library, error) {
	var tf templatesFile
	if err := loadYAML(cmd, "templates", &tf); err != nil {
		return nil, err
	}

	lib := template.NewLibrary()
	for i := range tf.Expectations {
		e := &tf.Expectations[i]
		if err := lib.AddExpectations(e.Label, &e.ExpectationSet); err != nil {
			return nil, err
		}
	}
	for i := range tf.Dense {
		d := &tf.Dense[i]
		if err := lib.AddDense(d.Label, &d.Dense); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func loadSegments(cmd *cobra.Command) (map[feature.Modality]*template.Segment, error) {
	path, _ := cmd.Flags().GetString("segments")
	if path == "" {
		return nil, nil
	}

	var sf struct {
		Segments []template.Segment `yaml:"segments"`
	}
	if err := loadYAML(cmd, "segments", &sf); err != nil {
		return nil, err
	}

	out := make(map[feature.Modality]*template.Segment, len(sf.Segments))
	for i := range sf.Segments {
		s := &sf.Segments[i]
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[s.Modality]; dup {
			return nil, fmt.Errorf("segments: duplicate modality %q", s.Modality)
		}
		out[s.Modality] = s
	}
	return out, nil
}

func writeDocument(cmd *cobra.Command, doc *report.Document) error {
	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return doc.WriteJSON(out)
	case "snapshot":
		return doc.WriteSnapshot(out)
	default:
		return fmt.Errorf("unknown output format %q (json|snapshot)", format)
	}
}
