// Package githubapi contains GraphQL documents for GitHub API operations.
// This file centralizes all GraphQL documents used by the GitHub client.
package githubapi

// createCommitOnBranchMutation commits file additions on top of an expected head
const createCommitOnBranchMutation = `
	mutation CreateCommitOnBranch($input: CreateCommitOnBranchInput!) {
		createCommitOnBranch(input: $input) {
			commit {
				oid
				url
			}
		}
	}
`
