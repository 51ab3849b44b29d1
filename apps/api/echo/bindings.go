package echoapi

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/services/spreadsheet"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field != "" {
			ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
		}
	}
}

// idParam reads a positive integer path parameter; anything else is a 404.
func idParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}

func queryInt(ctx echo.Context, name string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(ctx.QueryParam(name)))
	return n
}

// queryInts accepts both `?id=1&id=2` and `?id=1,2`. Unparsable values are skipped.
func queryInts(ctx echo.Context, name string) []int {
	vals, ok := ctx.QueryParams()[name]
	if !ok {
		return nil
	}
	ints := make([]int, 0, len(vals))
	for _, v := range vals {
		for _, part := range strings.Split(v, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				ints = append(ints, n)
			}
		}
	}
	return ints
}

func queryBool(ctx echo.Context, name string) *bool {
	b, err := strconv.ParseBool(ctx.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}

// formUpload returns the file posted under `field`, or nil when there is none.
// The returned func closes the file.
func formUpload(ctx echo.Context, field string) (*core.Upload, func(), error) {
	noop := func() {}
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, noop, nil
		}
		return nil, noop, errors.Wrapf(err, "reading %s upload", field)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, noop, errors.Wrapf(err, "opening %s upload", field)
	}
	up := &core.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}
	return up, func() { _ = f.Close() }, nil
}

// spreadsheetUpload returns the workbook posted under "file".
func (s *server) spreadsheetUpload(ctx echo.Context) (*core.Upload, func(), error) {
	up, closeFn, err := formUpload(ctx, "file")
	if err != nil {
		return nil, closeFn, err
	}
	if up == nil {
		return nil, closeFn, core.NewFieldError("file", "no file selected")
	}
	if !core.HasExt(up.Filename, s.Conf.Uploads.SpreadsheetExts) {
		closeFn()
		return nil, func() {}, core.NewFieldError("file", "only Excel files (.xlsx) are accepted")
	}
	return up, closeFn, nil
}

// mergeImportProblems prepends the rows the reader rejected to the service's result.
func mergeImportProblems(res core.ImportResult, problems []string) core.ImportResult {
	if len(problems) > 0 {
		res.Errors = append(append([]string{}, problems...), res.Errors...)
	}
	res.Success = res.ImportedCount > 0 || len(res.Errors) == 0
	return res
}

// xlsx renders a workbook in memory and sends it as an attachment.
func xlsx(ctx echo.Context, filename string, write func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return ctx.Blob(http.StatusOK, spreadsheet.ContentType, buf.Bytes())
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	CountResponse struct {
		Count int `json:"count"`
	}
)
