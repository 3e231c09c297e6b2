package hydroapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rewired-gh/hydrowatch/internal/fallback"
	"github.com/rewired-gh/hydrowatch/internal/genai"
	"github.com/rewired-gh/hydrowatch/internal/models"
)

// opGenerative names the generative tier of the report chain.
const opGenerative = OpReport + ".generative"

// GenerateReport returns an analysis report from the first tier that
// produces a valid one: the backend, then the generative model, then a
// static placeholder.
func (c *Client) GenerateReport(ctx context.Context, req models.ReportRequest) models.Outcome[models.AnalysisReport] {
	start := time.Now()

	report, remoteErr := attempt(OpReport, func() (models.AnalysisReport, error) {
		return c.remoteReport(ctx, req)
	})
	if remoteErr == nil {
		return settle(OpReport, report, models.SourceRemote, nil, start)
	}
	recordFailure(OpReport, remoteErr)

	if c.generator == nil {
		return settle(OpReport, fallback.StaticReport(), models.SourceStatic, remoteErr, start)
	}

	report, genErr := attempt(opGenerative, func() (models.AnalysisReport, error) {
		return c.generate(ctx, req)
	})
	if genErr == nil {
		return settle(OpReport, report, models.SourceGenerative, remoteErr, start)
	}
	recordFailure(opGenerative, genErr)

	// Classify reports the generative kind, the last tier that failed
	return settle(OpReport, fallback.StaticReport(), models.SourceStatic, errors.Join(genErr, remoteErr), start)
}

func (c *Client) remoteReport(ctx context.Context, req models.ReportRequest) (models.AnalysisReport, error) {
	var report models.AnalysisReport
	if err := c.doJSON(ctx, OpReport, http.MethodPost, "/api/gemini/analyze", nil, req, &report, c.timeouts.Report); err != nil {
		return models.AnalysisReport{}, err
	}
	if err := report.Validate(); err != nil {
		return models.AnalysisReport{}, malformed(OpReport, err)
	}
	return report, nil
}

func (c *Client) generate(ctx context.Context, req models.ReportRequest) (models.AnalysisReport, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Generate)
	defer cancel()

	report, err := c.generator.GenerateReport(ctx, req)
	if err != nil {
		if errors.Is(err, genai.ErrMalformedReply) {
			return models.AnalysisReport{}, malformed(opGenerative, err)
		}
		return models.AnalysisReport{}, &RemoteError{Op: opGenerative, Kind: Classify(err), Err: err}
	}
	if report == nil {
		return models.AnalysisReport{}, malformed(opGenerative, errors.New("generator returned no report"))
	}
	if err := report.Validate(); err != nil {
		return models.AnalysisReport{}, malformed(opGenerative, err)
	}
	return *report, nil
}
