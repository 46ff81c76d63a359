package routes

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	v1 "image-compare/api/v1"
	"image-compare/internal/codec"
	diffimage "image-compare/internal/diff/image"
	"image-compare/internal/metrics"
	"image-compare/internal/myhttp"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const maxMemory = 32 << 20

var errInvalidParameter = errors.New("invalid parameter")

// Diff handles POST /diff. Parameters missing from the form fall back to
// defaults.
func Diff(m *metrics.Diff, defaults diffimage.Parameters) http.HandlerFunc {
	tracer := otel.Tracer("image-compare/internal/routes")

	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		if err := r.ParseMultipartForm(maxMemory); err != nil {
			logger.Info("failed to parse multipart form", "error", err)
			m.Fail(metrics.ResultInvalidInput)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		params, format, err := parseParameters(r, defaults)
		if err != nil {
			logger.Info("rejected diff parameters", "error", err)
			m.Fail(metrics.ResultInvalidInput)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var current, reference image.Image
		eg := errgroup.Group{}
		eg.Go(func() error {
			var err error
			current, err = formImage(r, v1.FieldCurrent)
			return err
		})
		eg.Go(func() error {
			var err error
			reference, err = formImage(r, v1.FieldReference)
			return err
		})
		if err := eg.Wait(); err != nil {
			logger.Info("failed to read input images", "error", err)
			m.Fail(metrics.ResultInvalidInput)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		ctx, span := tracer.Start(r.Context(), "MarkDiff.Calculate")
		now := time.Now()
		result, err := diffimage.NewMarkDiff(params).Calculate(reference, current)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			logger.Info("failed to calculate diff", "error", err)
			m.Fail(metrics.ResultInvalidInput)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		bounds := result.Image.Bounds()
		span.SetAttributes(
			attribute.Int("width", bounds.Dx()),
			attribute.Int("height", bounds.Dy()),
			attribute.Float64("diff_amount", result.DiffAmount),
		)
		span.End()
		m.Observe(result.DiffAmount, bounds.Dx()*bounds.Dy(), time.Since(now))

		data, err := codec.EncodeBytes(result.Image, format)
		if err != nil {
			logger.ErrorContext(ctx, "failed to encode diff image", "error", err)
			m.Fail(metrics.ResultError)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v1.DiffResponse{
			DiffData:   base64.StdEncoding.EncodeToString(data),
			DiffAmount: result.DiffAmount,
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
		}); err != nil {
			logger.Error("failed to encode response", "error", err)
		}
	}
}

func parseParameters(r *http.Request, defaults diffimage.Parameters) (diffimage.Parameters, codec.Format, error) {
	params := defaults

	if v := strings.TrimSpace(r.FormValue(v1.FieldThreshold)); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, "", xerrors.Errorf("%s %q: %w", v1.FieldThreshold, v, errInvalidParameter)
		}
		params.Threshold = threshold
	}
	if v := strings.TrimSpace(r.FormValue(v1.FieldMarkAmount)); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, "", xerrors.Errorf("%s %q: %w", v1.FieldMarkAmount, v, errInvalidParameter)
		}
		params.MarkAmount = amount
	}
	if v := r.FormValue(v1.FieldMarkColor); v != "" {
		markColor, err := diffimage.ParseMarkColor(v)
		if err != nil {
			return params, "", xerrors.Errorf("%s %q: %w", v1.FieldMarkColor, v, errInvalidParameter)
		}
		params.MarkColor = markColor
	}

	format, err := codec.ParseFormat(r.FormValue(v1.FieldFormat))
	if err != nil {
		return params, "", xerrors.Errorf("%s: %w", v1.FieldFormat, err)
	}
	return params.Clamp(), format, nil
}

func formImage(r *http.Request, field string) (image.Image, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, xerrors.Errorf("missing %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Errorf("failed to read %s: %w", field, err)
	}
	img, err := codec.Decode(data)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", field, err)
	}
	return img, nil
}
