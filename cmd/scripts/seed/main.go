package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/locallibrary/pkg/authors"
	"github.com/shishobooks/locallibrary/pkg/bookinstances"
	"github.com/shishobooks/locallibrary/pkg/books"
	"github.com/shishobooks/locallibrary/pkg/config"
	"github.com/shishobooks/locallibrary/pkg/database"
	"github.com/shishobooks/locallibrary/pkg/genres"
	"github.com/shishobooks/locallibrary/pkg/loans"
	"github.com/shishobooks/locallibrary/pkg/migrations"
	"github.com/shishobooks/locallibrary/pkg/models"
	"github.com/shishobooks/locallibrary/pkg/search"
	"github.com/shishobooks/locallibrary/pkg/users"
	"github.com/uptrace/bun"
)

type seedBook struct {
	title     string
	author    [2]string
	isbn      string
	summary   string
	genres    []string
	instances []models.LoanStatus
}

var catalog = []seedBook{
	{
		title:     "The Name of the Wind",
		author:    [2]string{"Patrick", "Rothfuss"},
		isbn:      "9780756404741",
		summary:   "A young man grows to be the most notorious wizard his world has ever seen.",
		genres:    []string{"Fantasy"},
		instances: []models.LoanStatus{models.LoanStatusAvailable, models.LoanStatusAvailable, models.LoanStatusMaintenance},
	},
	{
		title:     "The Wise Man's Fear",
		author:    [2]string{"Patrick", "Rothfuss"},
		isbn:      "9780756407919",
		summary:   "Kvothe continues the tale of his life.",
		genres:    []string{"Fantasy"},
		instances: []models.LoanStatus{models.LoanStatusAvailable, models.LoanStatusReserved},
	},
	{
		title:     "Apes and Angels",
		author:    [2]string{"Ben", "Bova"},
		isbn:      "9780765379528",
		summary:   "Humankind's first interstellar expedition races a wave of death.",
		genres:    []string{"Science Fiction"},
		instances: []models.LoanStatus{models.LoanStatusAvailable},
	},
	{
		title:     "Death Wave",
		author:    [2]string{"Ben", "Bova"},
		isbn:      "9780765379504",
		summary:   "Jordan Kell tries to persuade the world of a coming catastrophe.",
		genres:    []string{"Science Fiction"},
		instances: []models.LoanStatus{models.LoanStatusAvailable, models.LoanStatusMaintenance},
	},
	{
		title:     "Test Book 1",
		author:    [2]string{"Isaac", "Asimov"},
		isbn:      "9780553293357",
		summary:   "Summary of test book 1.",
		genres:    []string{"Science Fiction", "French Poetry"},
		instances: []models.LoanStatus{models.LoanStatusAvailable},
	},
}

func main() {
	log := logger.New()

	var opts struct {
		LibrarianPassword string `long:"librarian-password" default:"librarian123" description:"Password for the seeded librarian account"`
		MemberPassword    string `long:"member-password" default:"member123" description:"Password for the seeded member account"`
		Loans             int    `short:"l" long:"loans" default:"2" description:"How many available copies to lend to the member"`
	}

	_, err := flags.Parse(&opts)
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		log.Err(err).Fatal("flags parse error")
	}

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	ctx := context.Background()
	if _, err := migrations.BringUpToDate(ctx, db); err != nil {
		log.Err(err).Fatal("migrations error")
	}

	s := &seeder{
		db:            db,
		authors:       authors.NewService(db),
		books:         books.NewService(db),
		genres:        genres.NewService(db),
		instances:     bookinstances.NewService(db),
		loans:         loans.NewService(db, nil).WithLoanPeriod(cfg.LoanPeriodDays),
		search:        search.NewService(db),
		users:         users.NewService(db),
		librarianPass: opts.LibrarianPassword,
		memberPass:    opts.MemberPassword,
	}

	if err := s.run(ctx, opts.Loans); err != nil {
		color.Red("seed failed: %v", err)
		os.Exit(1)
	}
	color.Green("seed complete")
}

type seeder struct {
	db            *bun.DB
	authors       *authors.Service
	books         *books.Service
	genres        *genres.Service
	instances     *bookinstances.Service
	loans         *loans.Service
	search        *search.Service
	users         *users.Service
	librarianPass string
	memberPass    string
}

func (s *seeder) run(ctx context.Context, loanCount int) error {
	librarian, err := s.user(ctx, "librarian", s.librarianPass, models.RoleLibrarian)
	if err != nil {
		return err
	}
	member, err := s.user(ctx, "member", s.memberPass, models.RoleMember)
	if err != nil {
		return err
	}

	authorsByName := map[[2]string]*models.Author{}
	var available []string

	for _, sb := range catalog {
		author, ok := authorsByName[sb.author]
		if !ok {
			author = &models.Author{FirstName: sb.author[0], LastName: sb.author[1]}
			if err := s.authors.CreateAuthor(ctx, author); err != nil {
				return err
			}
			authorsByName[sb.author] = author
			fmt.Printf("%s author %s\n", color.CyanString("created"), author.DisplayName())
		}

		genreIDs := make([]int, 0, len(sb.genres))
		for _, name := range sb.genres {
			genre, err := s.genres.FindOrCreateGenre(ctx, name)
			if err != nil {
				return err
			}
			genreIDs = append(genreIDs, genre.ID)
		}

		book := &models.Book{Title: sb.title, AuthorID: author.ID, ISBN: sb.isbn, Summary: sb.summary}
		if err := s.books.CreateBook(ctx, book, genreIDs); err != nil {
			return err
		}
		book.Author = author
		if err := s.search.IndexBook(ctx, book); err != nil {
			color.Yellow("failed to index %s: %v", book.Title, err)
		}
		fmt.Printf("%s book %s\n", color.CyanString("created"), book.Title)

		for _, status := range sb.instances {
			instance := &models.BookInstance{BookID: book.ID, Imprint: "Seeded printing, " + time.Now().Format("2006"), Status: status}
			if err := s.instances.CreateInstance(ctx, instance); err != nil {
				return err
			}
			if status == models.LoanStatusAvailable {
				available = append(available, instance.ID)
			}
		}
	}

	for i := 0; i < loanCount && i < len(available); i++ {
		instance, err := s.loans.LoanOut(ctx, librarian, available[i], member.ID, nil)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s to %s, due %s\n", color.MagentaString("lent"), instance, member.Username, instance.DueBack.Format("2006-01-02"))
	}

	return nil
}

func (s *seeder) user(ctx context.Context, username, password, roleName string) (*models.User, error) {
	role := &models.Role{}
	err := s.db.NewSelect().Model(role).Where("name = ?", roleName).Scan(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "role %s", roleName)
	}

	created, err := s.users.Create(ctx, users.CreateUserOptions{
		Username: username,
		Password: password,
		RoleID:   role.ID,
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("%s user %s (%s)\n", color.CyanString("created"), username, roleName)

	return s.users.Retrieve(ctx, created.ID)
}
