package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/zenity"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/noksha/internal/app"
	"github.com/fpang/noksha/internal/catalog"
	"github.com/fpang/noksha/internal/cli"
	"github.com/fpang/noksha/internal/design"
	"github.com/fpang/noksha/internal/imageutil"
	"github.com/fpang/noksha/internal/wizard"
)

// generate flags
var (
	genderFlag      string
	styleFlag       string
	answersFlag     string
	inspirationFlag string
	pickFlag        bool
	outFlag         string
	saveFlag        bool
	shareFlag       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a design from a style and quiz answers",
	Long: `Generate walks the design wizard: gender, base style, optional inspiration
image and the personality quiz. Missing choices are asked interactively.
The design image and its narrative are written to the output directory.`,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&genderFlag, "gender", "g", "", "Garment family: female or male")
	f.StringVarP(&styleFlag, "style", "s", "", "Preset style id (see 'noksha styles')")
	f.StringVarP(&answersFlag, "answers", "a", "", "Comma-separated quiz choices, 1-based (e.g. 1,3,2)")
	f.StringVarP(&inspirationFlag, "inspiration", "i", "", "Reference image to guide the design")
	f.BoolVar(&pickFlag, "pick-inspiration", false, "Choose the reference image with a file dialog")
	f.StringVarP(&outFlag, "out", "o", ".", "Output directory")
	f.BoolVar(&saveFlag, "save", false, "Save the design to history")
	f.BoolVar(&shareFlag, "share", false, "Share the design with the configured share backend")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()
	outDir := cli.ResolveOutputDir(outFlag)
	prompt := cli.NewPrompter(os.Stdin, os.Stdout)

	answers, err := parseAnswers(answersFlag)
	if err != nil {
		return err
	}

	client := cli.InitGeminiClient(ctx, cfg.Provider.TextModel)
	a, err := app.New(ctx, cfg, client.Models, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.NewSession()
	defer s.Close()
	if err := s.Start(); err != nil {
		return err
	}

	gender, err := chooseGender(prompt, genderFlag)
	if err != nil {
		return err
	}
	if err := s.SelectGender(gender); err != nil {
		return err
	}

	if err := attachInspiration(s); err != nil {
		return err
	}

	styleID, err := chooseStyle(prompt, s.Styles(), styleFlag)
	if err != nil {
		return err
	}
	if err := s.SelectStyle(styleID); err != nil {
		return err
	}

	for i := 0; ; i++ {
		q, _, _, ok := s.Question()
		if !ok {
			break
		}
		var choice int
		if i < len(answers) {
			choice = answers[i]
		} else {
			labels := make([]string, len(q.Options))
			for j, o := range q.Options {
				labels[j] = o.Label
			}
			if choice, err = prompt.Choose(q.Question, labels); err != nil {
				return err
			}
		}
		if err := s.Answer(choice); err != nil {
			return err
		}
	}

	fmt.Println("\nStitching your design...")
	start := time.Now()
	if err := s.Wait(ctx); err != nil {
		return err
	}
	if err := s.Failure(); err != nil {
		log.Error().Err(err).Msg("Generation failed")
		return errors.New(wizard.GenerationFailureMessage)
	}
	st := s.Studio()
	d := st.Design()
	fmt.Printf("Done in %s\n\n", cli.FormatElapsed(time.Since(start)))

	base := filepath.Join(outDir, fmt.Sprintf("noksha-%s-%d", styleID, time.Now().Unix()))
	imgPath := base + imageutil.Extension(d.Image.MIMEType)
	if err := os.WriteFile(imgPath, d.Image.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write design: %w", err)
	}
	narrative := fmt.Sprintf("%s Reimagined\n\n%s\n\n%s\n\nTraits: %s\n",
		st.StyleName(), d.DescriptiveText, d.RationaleText, strings.Join(s.Traits(), ", "))
	if err := os.WriteFile(base+".txt", []byte(narrative), 0o644); err != nil {
		return fmt.Errorf("failed to write narrative: %w", err)
	}
	fmt.Printf("%s\n  image: %s\n  text:  %s\n", narrative, imgPath, base+".txt")

	if saveFlag {
		saved, _, err := st.Save(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("  saved: %s\n", saved.ID)
	}
	if shareFlag {
		res, err := st.Share(ctx)
		if err != nil {
			return err
		}
		switch {
		case res.Notice != "":
			fmt.Println(" ", res.Notice)
		case res.Canceled:
			fmt.Println("  share canceled")
		default:
			fmt.Printf("  shared: %s\n", res.FileName)
		}
	}
	return nil
}

// parseAnswers turns "1,3,2" into 0-based option indexes.
func parseAnswers(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid answer %q: want a positive number", p)
		}
		out = append(out, n-1)
	}
	if len(out) > len(catalog.PsychQuestions) {
		return nil, fmt.Errorf("got %d answers for %d questions", len(out), len(catalog.PsychQuestions))
	}
	return out, nil
}

func chooseGender(p *cli.Prompter, flag string) (design.Gender, error) {
	if flag != "" {
		return parseGender(flag)
	}
	genders := []design.Gender{design.GenderFemale, design.GenderMale}
	i, err := p.Choose("Who are we designing for?", []string{"Female", "Male"})
	if err != nil {
		return "", err
	}
	return genders[i], nil
}

func chooseStyle(p *cli.Prompter, styles []design.Style, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	labels := make([]string, len(styles))
	for i, s := range styles {
		labels[i] = fmt.Sprintf("%s (%s): %s", s.Name, s.Category, s.Description)
	}
	i, err := p.Choose("Pick a base style", labels)
	if err != nil {
		return "", err
	}
	return styles[i].ID, nil
}

func attachInspiration(s *wizard.Session) error {
	path := inspirationFlag
	if path == "" && pickFlag {
		picked, err := zenity.SelectFile(
			zenity.Title("Select an inspiration image"),
			zenity.FileFilters{{
				Name:     "Images",
				Patterns: []string{"*.png", "*.jpg", "*.jpeg", "*.webp", "*.gif"},
			}},
		)
		if errors.Is(err, zenity.ErrCanceled) {
			log.Info().Msg("No inspiration image selected")
			return nil
		}
		if err != nil {
			return fmt.Errorf("file picker failed: %w", err)
		}
		path = picked
	}
	if path == "" {
		return nil
	}
	img, err := imageutil.Load(path)
	if err != nil {
		return err
	}
	return s.SetInspiration(&img)
}
