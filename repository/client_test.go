package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"gopkg.in/jarcoal/httpmock.v1"
)

type RESTClientTestSuite struct {
	suite.Suite
	client *RESTClient
}

func (suite *RESTClientTestSuite) SetupTest() {
	httpmock.Reset()
	client, err := NewClient("http://localhost", "secret")
	suite.Nil(err)
	suite.client = client.(*RESTClient)
}

func (suite *RESTClientTestSuite) TestGetTable_Success() {
	httpmock.RegisterResponder(
		"GET",
		"http://localhost/api/data/subjects",
		func(req *http.Request) (*http.Response, error) {
			suite.Equal("secret", req.Header.Get("x-api-token"))
			return httpmock.NewStringResponse(200, `{"total": 2, "items": [{"subjectID": "P1"}, {"subjectID": "P2"}]}`), nil
		},
	)

	rows, err := suite.client.GetTable(context.Background(), "subjects", QueryOptions{})
	suite.Nil(err)
	suite.Len(rows, 2)
	suite.Equal("P1", rows[0]["subjectID"])
	suite.Equal("P2", rows[1]["subjectID"])
}

func (suite *RESTClientTestSuite) TestGetTable_PassesAttrsAndFilter() {
	httpmock.RegisterResponder(
		"GET",
		"http://localhost/api/data/subjects",
		func(req *http.Request) (*http.Response, error) {
			suite.Equal("subjectID,sex", req.URL.Query().Get("attrs"))
			suite.Equal("retracted==true", req.URL.Query().Get("q"))
			return httpmock.NewStringResponse(200, `{"total": 0, "items": []}`), nil
		},
	)

	rows, err := suite.client.GetTable(context.Background(), "subjects", QueryOptions{
		Attrs:  []string{"subjectID", "sex"},
		Filter: "retracted==true",
	})
	suite.Nil(err)
	suite.Empty(rows)
}

func (suite *RESTClientTestSuite) TestGetTable_MissingTableReturns404() {
	httpmock.RegisterResponder(
		"GET",
		"http://localhost/api/data/nope",
		httpmock.NewStringResponder(404, `{}`),
	)

	rows, err := suite.client.GetTable(context.Background(), "nope", QueryOptions{})
	suite.Nil(rows)
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *RESTClientTestSuite) TestGetTable_FailOnInvalidJSON() {
	httpmock.RegisterResponder(
		"GET",
		"http://localhost/api/data/subjects",
		httpmock.NewStringResponder(200, `...`),
	)

	rows, err := suite.client.GetTable(context.Background(), "subjects", QueryOptions{})
	suite.Nil(rows)
	suite.NotNil(err)
}

func (suite *RESTClientTestSuite) TestBatchInsert_Success() {
	var got entityBatch
	httpmock.RegisterResponder(
		"POST",
		"http://localhost/api/data/samples",
		func(req *http.Request) (*http.Response, error) {
			suite.Nil(json.NewDecoder(req.Body).Decode(&got))
			return httpmock.NewStringResponse(201, `{}`), nil
		},
	)

	err := suite.client.BatchInsert(context.Background(), "samples", []Row{{"sampleID": "S1"}})
	suite.Nil(err)
	suite.Len(got.Entities, 1)
	suite.Equal("S1", got.Entities[0]["sampleID"])
}

func (suite *RESTClientTestSuite) TestBatchInsert_RejectionIsNotRetried() {
	calls := 0
	httpmock.RegisterResponder(
		"POST",
		"http://localhost/api/data/samples",
		func(req *http.Request) (*http.Response, error) {
			calls++
			return httpmock.NewStringResponse(400, `bad row`), nil
		},
	)

	err := suite.client.BatchInsert(context.Background(), "samples", []Row{{"sampleID": "S1"}})
	suite.NotNil(err)
	suite.Equal(1, calls)
}

func (suite *RESTClientTestSuite) TestBatchUpdate_ChunksLargeBatches() {
	calls := 0
	httpmock.RegisterResponder(
		"PUT",
		"http://localhost/api/data/subjects",
		func(req *http.Request) (*http.Response, error) {
			var batch entityBatch
			suite.Nil(json.NewDecoder(req.Body).Decode(&batch))
			suite.LessOrEqual(len(batch.Entities), BatchSize)
			calls++
			return httpmock.NewStringResponse(200, `{}`), nil
		},
	)

	rows := make([]Row, BatchSize+1)
	for i := range rows {
		rows[i] = Row{"subjectID": fmt.Sprintf("P%d", i)}
	}
	err := suite.client.BatchUpdate(context.Background(), "subjects", rows)
	suite.Nil(err)
	suite.Equal(2, calls)
}

func (suite *RESTClientTestSuite) TestUpdateColumn_SendsIDValuePairs() {
	var got columnBatch
	httpmock.RegisterResponder(
		"PUT",
		"http://localhost/api/data/subjects/comments",
		func(req *http.Request) (*http.Response, error) {
			suite.Nil(json.NewDecoder(req.Body).Decode(&got))
			return httpmock.NewStringResponse(200, `{}`), nil
		},
	)

	err := suite.client.UpdateColumn(context.Background(), "subjects", "comments", []Row{
		{"id": "1", "comments": "checked"},
	})
	suite.Nil(err)
	suite.Len(got.Entities, 1)
	suite.Equal("1", got.Entities[0].ID)
	suite.Equal("checked", got.Entities[0].Value)
}

func (suite *RESTClientTestSuite) TestDelete_MissingKeyReturnsNotFound() {
	httpmock.RegisterResponder(
		"DELETE",
		"http://localhost/api/data/subjects/P1",
		httpmock.NewStringResponder(404, `{}`),
	)

	err := suite.client.Delete(context.Background(), "subjects", "P1")
	suite.ErrorIs(err, ErrNotFound)
}

func (suite *RESTClientTestSuite) TestUploadCSV_SetsTableAndAction() {
	httpmock.RegisterResponder(
		"POST",
		"http://localhost/api/import/csv",
		func(req *http.Request) (*http.Response, error) {
			suite.Equal("subjectinfo", req.URL.Query().Get("table"))
			suite.Equal("add_update_existing", req.URL.Query().Get("action"))
			return httpmock.NewStringResponse(200, `{}`), nil
		},
	)

	err := suite.client.UploadCSV(context.Background(), "subjectinfo", []byte("subjectID\nP1\n"), AddUpdateExisting)
	suite.Nil(err)
}

func (suite *RESTClientTestSuite) TestHealthcheck_Success() {
	httpmock.RegisterResponder(
		"GET",
		"http://localhost/api/ping",
		httpmock.NewStringResponder(200, `pong`),
	)

	suite.Nil(suite.client.Healthcheck(context.Background()))
}

func (suite *RESTClientTestSuite) TestHealthcheck_FailsOnNon200() {
	httpmock.RegisterResponder(
		"GET",
		"http://localhost/api/ping",
		httpmock.NewStringResponder(503, `{}`),
	)

	suite.NotNil(suite.client.Healthcheck(context.Background()))
}

func (suite *RESTClientTestSuite) TestHealthcheck_FailsOnClientErr() {
	suite.NotNil(suite.client.Healthcheck(context.Background()))
}

func TestRESTClientTestSuite(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	suite.Run(t, new(RESTClientTestSuite))
}

func TestChunkRows(t *testing.T) {
	rows := make([]Row, 2500)
	chunks := chunkRows(rows, 1000)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if len(chunks[2]) != 500 {
		t.Fatalf("last chunk has %d rows, want 500", len(chunks[2]))
	}
}
