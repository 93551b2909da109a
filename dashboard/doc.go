/*
Package dashboard derives chart series, table rows, and plant comparisons from
performance test results.

The derivation functions are pure: they never modify their input and always
return new slices. Selection holds the user's current choices as a plain
serializable value, and View ties a Selection to a model.ResultsSource.
*/
package dashboard
