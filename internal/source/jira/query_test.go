package jira

import "testing"

func TestBuildSearchURL(t *testing.T) {
	tests := []struct {
		name string
		opts SearchOptions
		want string
	}{
		{
			name: "first page",
			opts: SearchOptions{
				Root:      "https://jira.example.com",
				JQL:       `project = ABC AND status != "Done"`,
				BatchSize: 50,
			},
			want: "https://jira.example.com/rest/api/3/search/jql" +
				"?jql=project%20%3D%20ABC%20AND%20status%20%21%3D%20%22Done%22" +
				"&nextPageToken=&maxResults=50&expand=changelog&fields=*all",
		},
		{
			name: "trailing slash and cursor",
			opts: SearchOptions{
				Root:      "https://jira.example.com/",
				JQL:       "project=ABC&x",
				Cursor:    "Ch0jU3RyaW5nJlVFVT0=",
				BatchSize: 10,
			},
			want: "https://jira.example.com/rest/api/3/search/jql" +
				"?jql=project%3DABC%26x" +
				"&nextPageToken=Ch0jU3RyaW5nJlVFVT0%3D&maxResults=10&expand=changelog&fields=*all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildSearchURL(tt.opts); got != tt.want {
				t.Errorf("BuildSearchURL()\n got %s\nwant %s", got, tt.want)
			}
		})
	}
}
