package catalog

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nurlybekov/circulation-service/internal/errs"
	"github.com/nurlybekov/circulation-service/internal/model"
	"github.com/nurlybekov/circulation-service/internal/repository"
)

type Service struct {
	log  *zap.Logger
	repo repository.CatalogRepository
}

func NewService(repo repository.CatalogRepository, log *zap.Logger) *Service {
	return &Service{
		log:  log.Named("catalog"),
		repo: repo,
	}
}

func (s *Service) AddBook(ctx context.Context, req model.AddBookRequest) (model.Book, error) {
	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)
	if title == "" || len(title) > 200 {
		return model.Book{}, errors.WithMessage(errs.ErrValidation, "title is required and must be at most 200 characters")
	}
	if author == "" || len(author) > 100 {
		return model.Book{}, errors.WithMessage(errs.ErrValidation, "author is required and must be at most 100 characters")
	}

	// unique-index race on isbn still surfaces as ErrDuplicateISBN
	// from the insert; this check just gives the common case a clean
	// answer without burning a sequence value.
	if _, err := s.repo.GetBookByISBN(ctx, req.ISBN); err == nil {
		return model.Book{}, errs.ErrDuplicateISBN
	} else if !errors.Is(err, errs.ErrNotFound) {
		return model.Book{}, err
	}

	book, err := s.repo.InsertBook(ctx, model.Book{
		Title:           title,
		Author:          author,
		ISBN:            req.ISBN,
		TotalCopies:     req.TotalCopies,
		AvailableCopies: req.TotalCopies,
	})
	if err != nil {
		return model.Book{}, err
	}

	s.log.Info("book added", zap.Int("id", book.ID), zap.String("isbn", book.ISBN))
	return book, nil
}

func (s *Service) GetBook(ctx context.Context, id int) (model.Book, error) {
	return s.repo.GetBook(ctx, id)
}

const (
	SearchByTitle  = "title"
	SearchByAuthor = "author"
	SearchByISBN   = "isbn"
)

// SearchBooks matches title/author by case-insensitive substring and
// isbn exactly.
func (s *Service) SearchBooks(ctx context.Context, term, searchType string) ([]model.Book, error) {
	var match func(b model.Book) bool
	needle := strings.ToLower(term)
	switch searchType {
	case SearchByTitle:
		match = func(b model.Book) bool { return strings.Contains(strings.ToLower(b.Title), needle) }
	case SearchByAuthor:
		match = func(b model.Book) bool { return strings.Contains(strings.ToLower(b.Author), needle) }
	case SearchByISBN:
		match = func(b model.Book) bool { return term == b.ISBN }
	default:
		return nil, errors.WithMessagef(errs.ErrValidation, "unknown search type %q", searchType)
	}

	all, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	books := make([]model.Book, 0, len(all))
	for _, b := range all {
		if match(b) {
			books = append(books, b)
		}
	}
	return books, nil
}
