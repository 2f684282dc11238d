package report

import (
	"encoding/xml"
	"fmt"

	"smarttest/internal/domain/entity"
)

type junitSuites struct {
	XMLName xml.Name     `xml:"testsuites"`
	Suites  []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Time      string      `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
	Skipped   *junitSkip    `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

type junitSkip struct {
	Message string `xml:"message,attr"`
}

func seconds(d interface{ Seconds() float64 }) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func RenderJUnit(report *entity.RunReport) ([]byte, error) {
	s := report.Summary
	suite := junitSuite{
		Name:      report.Suite,
		Tests:     s.Total,
		Failures:  s.Failed,
		Errors:    s.Errors,
		Skipped:   s.Skipped,
		Time:      seconds(s.Duration),
		Timestamp: report.StartedAt.Format("2006-01-02T15:04:05"),
	}
	for _, r := range report.Results {
		c := junitCase{
			Name:      r.Name,
			Classname: r.Classname,
			Time:      seconds(r.Duration),
		}
		body := r.Error
		if r.Stack != "" {
			body += "\n\n" + r.Stack
		}
		switch r.Outcome {
		case entity.OutcomeFail:
			c.Failure = &junitProblem{Message: firstLine(r.Error), Type: orDefault(r.ErrorType, "assertion"), Body: body}
		case entity.OutcomeError:
			c.Error = &junitProblem{Message: firstLine(r.Error), Type: orDefault(r.ErrorType, "error"), Body: body}
		case entity.OutcomeSkip:
			c.Skipped = &junitSkip{Message: r.Error}
		}
		if r.Screenshot != "" {
			c.SystemOut = "[[ATTACHMENT|" + r.Screenshot + "]]"
		}
		suite.Cases = append(suite.Cases, c)
	}

	out, err := xml.MarshalIndent(junitSuites{Suites: []junitSuite{suite}}, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
